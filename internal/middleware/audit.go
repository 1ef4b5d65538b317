package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/matterdesk/matterdesk/pkg/logger"
)

const maxLoggedBody = 2000

var sensitiveKeys = []string{"password", "old_password", "new_password", "token", "refresh_token", "access_token", "secret"}

// WriteLog records every write request (POST/PUT/PATCH/DELETE) with the acting
// principal and outcome. Domain audit records are written by the services;
// this is the operational trail of who called what.
func WriteLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != "POST" && method != "PUT" && method != "PATCH" && method != "DELETE" {
			c.Next()
			return
		}

		var body string
		if c.Request.Body != nil {
			bodyBytes, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			body = maskSensitiveFields(bodyBytes)
		}

		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}

		event.
			Str("request_id", logger.GetRequestID(c)).
			Str("method", method).
			Str("route", c.FullPath()).
			Str("path", c.Request.URL.Path).
			Str("module", routeModule(c.FullPath())).
			Int("status", status).
			Uint("actor_id", actorID(c)).
			Str("ip", c.ClientIP()).
			Str("body", body).
			Msg("write request")
	}
}

func actorID(c *gin.Context) uint {
	if actor := GetActor(c); actor != nil {
		return actor.ID
	}
	return GetUserID(c)
}

// routeModule returns the first path segment after /api,
// e.g. "/api/matters/:id/transitions" → "matters".
func routeModule(fullPath string) string {
	path := strings.TrimPrefix(fullPath, "/api/")
	module := strings.SplitN(path, "/", 2)[0]
	if module == "" {
		return "unknown"
	}
	return module
}

// maskSensitiveFields replaces credential values in a JSON body. Bodies that
// are not JSON objects are dropped rather than logged verbatim.
func maskSensitiveFields(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return "[unparsed]"
	}
	for key := range fields {
		lower := strings.ToLower(key)
		for _, sensitive := range sensitiveKeys {
			if lower == sensitive {
				fields[key] = "***"
				break
			}
		}
	}
	masked, err := json.Marshal(fields)
	if err != nil {
		return "[unparsed]"
	}
	out := string(masked)
	if len(out) > maxLoggedBody {
		out = out[:maxLoggedBody] + "...[truncated]"
	}
	return out
}
