package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"photobucket/internal/config"
	"photobucket/internal/security"
)

const ownerContextKey = "owner_id"

// Auth verifies the bearer token and puts the owner identity (the
// token's email claim) on the request context. Token issuance lives
// with the deployment's auth front, not here.
func Auth(cfg *config.AppConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := security.ParseAccessToken(tokenStr, cfg.Security.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		c.Set(ownerContextKey, claims.Email)
		c.Next()
	}
}

// OwnerID returns the authenticated owner for the request, or "" when
// the auth middleware did not run.
func OwnerID(c *gin.Context) string {
	return c.GetString(ownerContextKey)
}
