package main

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"insights-dashboard/internal/audit"
	"insights-dashboard/internal/auth"
	"insights-dashboard/internal/httpapi"
	"insights-dashboard/pkg/utils"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, verifier auth.Decoder, db *sql.DB, log *slog.Logger) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if db != nil {
			if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second, audit.TableName); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// session boundary
	httpapi.RegisterAuthRoutes(r, h)

	// protected dashboard API
	if verifier == nil {
		log.Warn("protected API not mounted: set IDP_VERIFY_ID_TOKEN to verify bearer tokens")
		return
	}
	httpapi.RegisterProtectedRoutes(r, verifier)
}
