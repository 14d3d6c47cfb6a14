package httpapi

import (
	"insights-dashboard/internal/auth"
	"insights-dashboard/internal/rbac"

	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes mounts the session boundary under /api/auth.
// Sign-in and MFA routes are only mounted when their service is wired.
func RegisterAuthRoutes(r gin.IRouter, h Handlers) {
	a := r.Group("/api/auth")
	a.POST("/store-token", h.StoreToken)
	a.POST("/logout", h.Logout)
	a.GET("/refresh", h.Refresh)

	if h.Login != nil {
		a.POST("/signin", h.SignIn)
		a.POST("/signout", h.SignOut)
	}

	if h.MFA != nil {
		m := a.Group("/mfa")
		m.POST("/setup", h.MFASetup)
		m.POST("/verify", h.MFAVerify)
		m.POST("/status", h.MFAStatus)
		m.POST("/disable", h.MFADisable)
	}
}

// RegisterProtectedRoutes mounts the bearer-authenticated dashboard API.
// decoder must verify signatures; claims presented by clients are never
// trusted unverified.
func RegisterProtectedRoutes(r gin.IRouter, decoder auth.Decoder) {
	api := r.Group("/api")
	api.Use(auth.RequireIDToken(decoder))

	api.GET("/me", Me)

	admin := api.Group("/admin")
	admin.Use(rbac.RequireAnyRole(rbac.RoleOwner))
	admin.GET("/ping", Ping)

	clients := api.Group("/clients/:client_id")
	clients.Use(rbac.RequireTenant("client_id"))
	clients.GET("/ping", Ping)
}
