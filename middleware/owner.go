package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OwnerHeader is set by the API gateway after authentication. This service
// trusts it and uses it for owner scoping only.
const OwnerHeader = "X-User-ID"

// RequireOwner extracts the owner ID from the gateway header and stores it
// in the context. Requests without it are rejected before reaching handlers.
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := c.GetHeader(OwnerHeader)
		if ownerID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"type":    "AUTH_ERROR",
				"message": "Missing user identity header",
				"code":    "401",
			})
			return
		}
		c.Set(string(UserIDKey), ownerID)
		c.Next()
	}
}

// GetOwnerID returns the owner ID stored by RequireOwner.
func GetOwnerID(c *gin.Context) string {
	return c.GetString(string(UserIDKey))
}
