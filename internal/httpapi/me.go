package httpapi

import (
	"net/http"

	"insights-dashboard/internal/auth"

	"github.com/gin-gonic/gin"
)

// Me returns the user resolved by the bearer middleware.
func Me(c *gin.Context) {
	u, err := auth.UserFrom(c.Request.Context())
	if err != nil {
		abortError(c, http.StatusUnauthorized, "unauthenticated")
		return
	}
	c.JSON(http.StatusOK, u)
}

// Ping answers protected liveness probes with the caller's scope.
func Ping(c *gin.Context) {
	u, _ := auth.UserFrom(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": "ok", "role": u.Role, "clientId": u.ClientID})
}
