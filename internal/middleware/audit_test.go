package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/matterdesk/matterdesk/pkg/logger"
)

func TestMaskSensitiveFields(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		contains string
		absent   string
	}{
		{"password masked", `{"email":"a@b.test","password":"hunter22"}`, `"password":"***"`, "hunter22"},
		{"token masked", `{"token":"abc"}`, `"token":"***"`, "abc"},
		{"case insensitive", `{"Password":"x1"}`, `"Password":"***"`, "x1"},
		{"plain fields kept", `{"status":"InReview"}`, `"status":"InReview"`, "***"},
		{"non json dropped", `password=hunter22`, "[unparsed]", "hunter22"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := maskSensitiveFields([]byte(tt.body))
			if !strings.Contains(got, tt.contains) {
				t.Errorf("expected %q in %q", tt.contains, got)
			}
			if strings.Contains(got, tt.absent) {
				t.Errorf("did not expect %q in %q", tt.absent, got)
			}
		})
	}
}

func TestRouteModule(t *testing.T) {
	tests := map[string]string{
		"/api/matters/:id/transitions": "matters",
		"/api/invitations":             "invitations",
		"":                             "unknown",
	}
	for path, want := range tests {
		if got := routeModule(path); got != want {
			t.Errorf("routeModule(%q) = %q, expected %q", path, got, want)
		}
	}
}

func TestWriteLog_LogsWritesOnly(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter("info", &buf)
	defer logger.Init("info")

	var seenBody string
	router := gin.New()
	router.Use(WriteLog())
	router.POST("/api/auth/login", func(c *gin.Context) {
		var req map[string]string
		_ = c.ShouldBindJSON(&req)
		seenBody = req["password"]
		c.Status(http.StatusUnauthorized)
	})
	router.GET("/api/matters", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/matters", nil)
	router.ServeHTTP(w, req)
	if buf.Len() != 0 {
		t.Fatalf("reads should not be logged, got %q", buf.String())
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/api/auth/login", strings.NewReader(`{"email":"a@b.test","password":"hunter22"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if seenBody != "hunter22" {
		t.Errorf("handler should still read the original body, got %q", seenBody)
	}
	if strings.Contains(buf.String(), "hunter22") {
		t.Error("password leaked into the log")
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["level"] != "warn" {
		t.Errorf("4xx should log at warn, got %v", entry["level"])
	}
	if entry["module"] != "auth" {
		t.Errorf("module = %v", entry["module"])
	}
}
