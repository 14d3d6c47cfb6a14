package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

const ginUserKey = "user"

// RequireIDToken decodes a bearer ID token and injects the resolved user into
// the request context. d must verify signatures; UnverifiedDecoder is not
// acceptable here because the token comes from the client.
// It does not perform RBAC checks; those belong to internal/rbac.
func RequireIDToken(d Decoder) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tok := strings.TrimSpace(strings.TrimPrefix(raw, bearerPrefix))

		claims, err := d.Decode(c.Request.Context(), tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		u := ResolveUser(claims)
		c.Request = c.Request.WithContext(WithUser(c.Request.Context(), u))
		c.Set(ginUserKey, u)

		c.Next()
	}
}
