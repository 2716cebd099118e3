package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flowsync-hq/flowsync/internal/model"
	"github.com/flowsync-hq/flowsync/internal/service"
)

const userContextKey = "flowsync.user"

// RequireSession authenticates the request from the session cookie (or a
// bearer token) and loads the user onto the context. Unauthenticated
// requests are rejected with 401.
func RequireSession(auth service.AuthService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
				token = strings.TrimPrefix(header, "Bearer ")
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		userID, err := auth.VerifySession(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}

		user, err := auth.CurrentUser(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// SessionUser returns the user loaded by RequireSession, or nil on routes
// that did not pass through it.
func SessionUser(c *gin.Context) *model.User {
	if v, ok := c.Get(userContextKey); ok {
		if user, ok := v.(*model.User); ok {
			return user
		}
	}
	return nil
}
