package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type contextKey string

const adminContextKey contextKey = "mscAdmin"

// AdminMiddleware rejects requests without a valid admin bearer token.
func AdminMiddleware(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := extractBearerToken(authHeader)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		claims, err := v.Validate(token)
		if err != nil {
			if errors.Is(err, ErrForbidden) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin rights required"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(string(adminContextKey), claims)
		c.Next()
	}
}

// CurrentAdmin extracts the authenticated operator from the context.
func CurrentAdmin(c *gin.Context) (AdminClaims, bool) {
	value, exists := c.Get(string(adminContextKey))
	if !exists {
		return AdminClaims{}, false
	}
	claims, ok := value.(AdminClaims)
	return claims, ok
}

func extractBearerToken(header string) string {
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
