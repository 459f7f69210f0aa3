package middleware

import (
	"github.com/gin-gonic/gin"

	"epay-gateway/internal/shared/response"
	"epay-gateway/pkg/jwt"
)

// AdminMiddleware checks if user has admin role
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get role from context (set by AuthMiddleware)
		role, ok := c.Get(ContextRole)
		if !ok || role != jwt.RoleAdmin {
			response.Forbidden(c, "Access denied: admin role required")
			c.Abort()
			return
		}

		c.Next()
	}
}
