package rbac

import (
	"net/http"

	"insights-dashboard/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireAnyRole allows access if the caller has any of the provided roles.
// Roles come from the ID token via auth.RequireIDToken; that must run first.
func RequireAnyRole(allowed ...auth.Role) gin.HandlerFunc {
	allowedSet := make(map[auth.Role]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, err := auth.RoleFrom(c.Request.Context())
		if err != nil || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if _, ok := allowedSet[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// RequireTenant enforces tenant isolation for routes scoped by a client id
// path parameter: owners see every tenant, clients only their own.
func RequireTenant(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := auth.RoleFrom(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user required"})
			return
		}
		if IsOwner(role) {
			c.Next()
			return
		}
		clientID, err := auth.ClientID(c.Request.Context())
		want := c.Param(param)
		if err != nil || want == "" || clientID != want {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
