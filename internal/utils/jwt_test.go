package utils

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-for-testing"

func init() {
	SetJWTSecret(testSecret)
}

func TestToken_RoleClaimsRoundTrip(t *testing.T) {
	tests := []struct {
		userID uint
		email  string
		role   string
	}{
		{1, "admin@hale.test", "admin_manager"},
		{2, "manager@hale.test", "case_manager"},
		{3, "associate@hale.test", "associate_lawyer"},
		{4, "tenant@example.test", "client"},
	}
	seen := make(map[string]bool)
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			token, err := GenerateToken(tt.userID, tt.email, tt.role, 24)
			if err != nil {
				t.Fatalf("GenerateToken() error = %v", err)
			}
			if seen[token] {
				t.Error("each principal should receive a distinct token")
			}
			seen[token] = true

			claims, err := ParseToken(token)
			if err != nil {
				t.Fatalf("ParseToken() error = %v", err)
			}
			if claims.UserID != tt.userID || claims.Email != tt.email || claims.Role != tt.role {
				t.Errorf("claims = %d/%q/%q, expected %d/%q/%q",
					claims.UserID, claims.Email, claims.Role, tt.userID, tt.email, tt.role)
			}
			if claims.Issuer != "matterdesk" {
				t.Errorf("Issuer = %q, expected matterdesk", claims.Issuer)
			}
		})
	}
}

func TestGenerateToken_ExpiryFollowsConfiguredHours(t *testing.T) {
	for _, hours := range []int{1, 24, 24 * 7} {
		token, _ := GenerateToken(2, "manager@hale.test", "case_manager", hours)
		claims, err := ParseToken(token)
		if err != nil {
			t.Fatalf("ParseToken() error = %v", err)
		}
		want := time.Now().Add(time.Duration(hours) * time.Hour)
		if diff := claims.ExpiresAt.Time.Sub(want); diff < -time.Minute || diff > time.Minute {
			t.Errorf("%dh token expires %v away from expectation", hours, diff)
		}
	}
}

// forgeClaims re-encodes the payload of token with claims but keeps its signature.
func forgeClaims(t *testing.T, token string, claims string) string {
	t.Helper()
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape %q", token)
	}
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(claims))
	return strings.Join(parts, ".")
}

func TestParseToken_Rejects(t *testing.T) {
	clientToken, _ := GenerateToken(4, "tenant@example.test", "client", 24)
	expired, _ := GenerateToken(2, "manager@hale.test", "case_manager", -1)

	SetJWTSecret("another-deployment")
	foreign, _ := GenerateToken(1, "admin@hale.test", "admin_manager", 24)
	SetJWTSecret(testSecret)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: 1, Role: "admin_manager",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("building unsigned token: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"expired session", expired},
		{"signed by another deployment", foreign},
		{"client escalated to admin", forgeClaims(t, clientToken, `{"user_id":4,"email":"tenant@example.test","role":"admin_manager","iss":"matterdesk"}`)},
		{"unsigned token", unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token); err == nil {
				t.Errorf("ParseToken should reject %s", tt.name)
			}
		})
	}
}
