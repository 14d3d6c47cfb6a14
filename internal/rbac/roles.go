package rbac

import "insights-dashboard/internal/auth"

// Role names, re-exported for route wiring.
const (
	RoleOwner  = auth.RoleOwner
	RoleClient = auth.RoleClient
)

// IsOwner reports whether role carries cross-tenant access.
func IsOwner(role auth.Role) bool { return role == RoleOwner }
