// Package middleware provides HTTP middleware for the railsdash API.
package middleware

import (
	"net/http"

	"github.com/MacJediWizard/railsdash/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys used by this package.
type ContextKey string

// UserContextKey is the context key for the authenticated admin.
const UserContextKey ContextKey = "user"

// AuthMiddleware returns a Gin middleware that requires an admin session.
// When the admin has no password configured every request passes.
func AuthMiddleware(sessions *auth.SessionStore, admin *auth.Admin, logger zerolog.Logger) gin.HandlerFunc {
	log := logger.With().Str("component", "auth_middleware").Logger()

	return func(c *gin.Context) {
		if !admin.Enabled() {
			c.Next()
			return
		}

		sessionUser, err := sessions.GetUser(c.Request)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("unauthenticated request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		c.Set(string(UserContextKey), sessionUser)
		c.Next()
	}
}

// GetUser returns the admin stored by AuthMiddleware, or nil.
func GetUser(c *gin.Context) *auth.SessionUser {
	v, ok := c.Get(string(UserContextKey))
	if !ok {
		return nil
	}
	user, _ := v.(*auth.SessionUser)
	return user
}
