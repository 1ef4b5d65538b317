package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/matterdesk/matterdesk/internal/models"
	"github.com/matterdesk/matterdesk/internal/services"
	"github.com/matterdesk/matterdesk/internal/utils"
	"github.com/matterdesk/matterdesk/pkg/logger"
	"github.com/matterdesk/matterdesk/pkg/response"
)

const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
	ContextRole   = "role"
	ContextActor  = "actor"
)

// PrincipalResolver maps an authenticated principal id to an Actor.
type PrincipalResolver interface {
	Resolve(ctx context.Context, principalID uint) (*services.Actor, error)
}

// SessionRevoker ends the refresh tokens of a principal.
type SessionRevoker func(profileID uint) (int64, error)

// AuthRequired validates the bearer JWT from the Authorization header.
func AuthRequired() gin.HandlerFunc {
	return authenticate(false)
}

// StreamAuthRequired is AuthRequired for the notification stream.
// EventSource clients cannot set headers, so a token query parameter
// is accepted there and nowhere else.
func StreamAuthRequired() gin.HandlerFunc {
	return authenticate(true)
}

func authenticate(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string
		if allowQuery {
			tokenString = c.Query("token")
		}
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				response.Unauthorized(c, "invalid authorization header format")
				c.Abort()
				return
			}
			tokenString = parts[1]
		}
		if tokenString == "" {
			response.Unauthorized(c, "authorization header required")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)

		c.Next()
	}
}

// PrincipalRequired resolves the token subject into an Actor once per request.
// Suspended, deactivated and locked principals also lose their refresh tokens.
func PrincipalRequired(resolver PrincipalResolver, revoke SessionRevoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		actor, err := resolver.Resolve(c.Request.Context(), userID)
		if err != nil {
			var inactive *services.InactiveError
			if errors.As(err, &inactive) && inactive.RevokesSession() && revoke != nil {
				if n, rerr := revoke(userID); rerr != nil {
					logger.Error().Err(rerr).Uint("actor_id", userID).Msg("failed to revoke sessions")
				} else if n > 0 {
					logger.Info().Uint("actor_id", userID).Int64("revoked", n).Str("status", inactive.Status).
						Msg("revoked sessions of inactive principal")
				}
			}
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextActor, actor)
		// The token role is informational; the resolved role is authoritative.
		c.Set(ContextRole, actor.Role)
		c.Next()
	}
}

// InternalRequired admits firm staff only.
func InternalRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetActor(c).IsInternal() {
			response.Error(c, response.ErrNotInternal)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RoleRequired admits actors holding one of roles.
func RoleRequired(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := GetActor(c)
		for _, role := range roles {
			if actor != nil && actor.Role == role {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "insufficient role")
		c.Abort()
	}
}

// AdminRequired is RoleRequired for firm administrators.
func AdminRequired() gin.HandlerFunc {
	return RoleRequired(models.RoleAdminManager)
}

// GetActor returns the resolved actor, or nil before PrincipalRequired ran.
func GetActor(c *gin.Context) *services.Actor {
	if v, exists := c.Get(ContextActor); exists {
		if actor, ok := v.(*services.Actor); ok {
			return actor
		}
	}
	return nil
}

func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		return id.(uint)
	}
	return 0
}

func GetEmail(c *gin.Context) string {
	if email, exists := c.Get(ContextEmail); exists {
		return email.(string)
	}
	return ""
}

func GetRole(c *gin.Context) string {
	if role, exists := c.Get(ContextRole); exists {
		return role.(string)
	}
	return ""
}
