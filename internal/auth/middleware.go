package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextUserKey is the gin context key the middleware binds the
// authenticated user id to.
const ContextUserKey = "userId"

// Middleware guards REST routes with the same verifier used at socket
// admission. Expects "Authorization: Bearer <token>".
func Middleware(verifier Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No token provided."})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		userID, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Invalid or expired token."})
			return
		}

		c.Set(ContextUserKey, userID)
		c.Next()
	}
}

// UserID extracts the authenticated user id bound by Middleware.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserKey)
}
