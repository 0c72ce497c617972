package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tradorr/api/internal/models"
)

// RequireAdmin guards admin-only views. It runs after Auth, so a missing
// user means the guard chain was miswired rather than an expired session.
// Signed-in non-admins are sent back to their default view.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userVal, exists := c.Get("current_user")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "redirect": RedirectLogin})
			return
		}
		user, ok := userVal.(models.User)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_user", "redirect": RedirectLogin})
			return
		}

		if !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "redirect": RedirectDashboard})
			return
		}

		c.Next()
	}
}

// CurrentUser reads the user the Auth middleware attached.
func CurrentUser(c *gin.Context) (models.User, bool) {
	userVal, exists := c.Get("current_user")
	if !exists {
		return models.User{}, false
	}
	user, ok := userVal.(models.User)
	return user, ok
}
