package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

const UserContextKey = "userID"

// AuthMiddleware trusts the identity header set by the edge proxy. Requests
// without it are rejected.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(UserContextKey, userID)
		c.Next()
	}
}

func GetUserID(c *gin.Context) (string, error) {
	if val, ok := c.Get(UserContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id, nil
		}
	}
	return "", errors.New("user ID not found in context")
}
