package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/utils"
)

const (
	CtxUserID   = "userID"
	CtxUserRole = "userRole"
)

func AuthMiddleware(tm *utils.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required", "code": "UNAUTHENTICATED"})
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := tm.ValidateJWT(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token", "code": "UNAUTHENTICATED"})
			return
		}

		// Set principal info in the context for handlers to use
		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUserRole, models.Role(claims.Role))

		c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := Role(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Permission denied.", "code": "UNAUTHORIZED", "kind": "forbidden"})
	}
}

func UserID(c *gin.Context) string {
	return c.GetString(CtxUserID)
}

func Role(c *gin.Context) models.Role {
	role, _ := c.Get(CtxUserRole)
	r, _ := role.(models.Role)
	return r
}
