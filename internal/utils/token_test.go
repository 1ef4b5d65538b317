package utils

import "testing"

func TestGenerateOpaqueToken(t *testing.T) {
	token, hash, err := GenerateOpaqueToken()
	if err != nil {
		t.Fatalf("GenerateOpaqueToken() error = %v", err)
	}
	if len(token) != 64 {
		t.Errorf("token length = %d, expected 64", len(token))
	}
	if hash == token {
		t.Error("hash should differ from token")
	}
	if HashToken(token) != hash {
		t.Error("HashToken should reproduce the stored digest")
	}

	other, _, _ := GenerateOpaqueToken()
	if other == token {
		t.Error("tokens should be unique")
	}
}
