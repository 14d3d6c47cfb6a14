package httpapi

import (
	"context"
	"net/http"

	"insights-dashboard/internal/audit"
	"insights-dashboard/internal/mfa"
	"insights-dashboard/internal/session"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
// Provider detail is logged with the endpoint tag and never returned.
type Handlers struct {
	Session *session.Service
	Login   *session.SignInService
	MFA     *mfa.Service
	Cookie  CookiePolicy
}

// requestContext carries the client IP down to audit recording.
func requestContext(c *gin.Context) context.Context {
	return audit.WithClientIP(c.Request.Context(), c.ClientIP())
}

func abortError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func writeOK(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
