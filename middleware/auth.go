package middleware

import (
	"net/http"
	"strings"

	"safemeds-backend/models"
	"safemeds-backend/utils"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the bearer token and exposes user_id, user_role
// and, for staff accounts, staff_id on the context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		claims, err := utils.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_role", claims.Role)
		if claims.StaffID != nil {
			c.Set("staff_id", *claims.StaffID)
		}
		c.Next()
	}
}

// RequireRoles lets the request through only for the listed roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role := c.GetString("user_role")
		if !allowed[role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}

// ManagerMiddleware admits admins and pharmacists.
func ManagerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !models.IsManager(c.GetString("user_role")) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin or pharmacist access required"})
			return
		}
		c.Next()
	}
}

func AdminMiddleware() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin)
}
