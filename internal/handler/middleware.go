package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireOperator gates operator endpoints (create/end session, append entry)
// behind a bearer token. An empty token leaves the endpoints open, for local
// development. The full site's role model lives elsewhere.
func RequireOperator(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "operator token required"})
			return
		}
		c.Next()
	}
}
