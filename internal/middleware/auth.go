package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quietude83/quietude/internal/auth"
	"github.com/quietude83/quietude/internal/models"
	"github.com/quietude83/quietude/internal/repository"
	"go.uber.org/zap"
)

// ContextKeyUser is where the authenticated user row lives in the gin
// context. Handlers read it through CurrentUser, never directly.
const ContextKeyUser = "current_user"

// TokenAuth validates the opaque session token on every request in the
// group. The token is just a key: it resolves to a user id in the
// session store, and the user row is loaded fresh from the database so
// role and active-flag changes take effect immediately, not at next
// login.
//
// Missing identity is always 401 here; 403 is the policy layer's
// business once we know who is calling.
func TokenAuth(sessions auth.Sessions, users repository.UserRepository, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
			})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Token") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization format, expected: Token <key>",
			})
			return
		}

		userID, err := sessions.Resolve(c.Request.Context(), parts[1])
		if err != nil {
			if !errors.Is(err, auth.ErrUnknownToken) {
				logger.Error("failed to resolve session token", zap.Error(err))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token",
			})
			return
		}

		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil {
			logger.Error("failed to load session user", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "authentication failed",
			})
			return
		}
		// A token for a deleted or deactivated account is dead weight:
		// the session row outlives the user until logout, but it no
		// longer authenticates anyone.
		if user == nil || !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token",
			})
			return
		}

		c.Set(ContextKeyUser, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated caller, or nil outside an
// authenticated group.
func CurrentUser(c *gin.Context) *models.User {
	val, exists := c.Get(ContextKeyUser)
	if !exists {
		return nil
	}
	user, ok := val.(*models.User)
	if !ok {
		return nil
	}
	return user
}
