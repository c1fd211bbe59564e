package middleware

import (
	"net/http"
	"strings"

	"hudcast/internal/core/domain"
	"hudcast/internal/core/services"
	"hudcast/pkg/logger"

	"github.com/gin-gonic/gin"
)

const userContextKey = "current_user"

// AuthMiddleware validates the bearer token and loads the account behind
// it. The token's claims are not enough on their own: the user is
// re-resolved so role changes and disables take effect immediately.
func AuthMiddleware(authService services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		user, err := authService.ResolveUser(c.Request.Context(), claims)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "account unavailable"})
			c.Abort()
			return
		}

		c.Set(userContextKey, user)
		c.Request = c.Request.WithContext(
			logger.WithUserID(c.Request.Context(), string(user.ID)),
		)
		c.Next()
	}
}

// AdminMiddleware runs after AuthMiddleware and rejects non-admins.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}
		if !user.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user set by AuthMiddleware, or nil.
func CurrentUser(c *gin.Context) *domain.User {
	val, exists := c.Get(userContextKey)
	if !exists {
		return nil
	}
	user, ok := val.(*domain.User)
	if !ok {
		return nil
	}
	return user
}
