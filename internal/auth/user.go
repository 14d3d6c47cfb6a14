package auth

// Role is the normalized dashboard role.
type Role string

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleOwner  Role = "owner"
	RoleClient Role = "client"
)

// User is the authenticated dashboard user derived from ID token claims.
// It is never persisted.
type User struct {
	Email    string   `json:"email"`
	Role     Role     `json:"role"`
	ClientID string   `json:"clientId,omitempty"`
	Groups   []string `json:"groups"`
}

// ResolveUser derives the dashboard user from claims.
// Role is owner iff the role claim is exactly "owner"; everything else,
// including an absent claim, is client. ClientID is kept for clients only.
func ResolveUser(c IDTokenClaims) User {
	u := User{
		Email:  c.Email,
		Role:   RoleClient,
		Groups: make([]string, 0, len(c.Groups)),
	}
	u.Groups = append(u.Groups, c.Groups...)
	if c.Role == string(RoleOwner) {
		u.Role = RoleOwner
		return u
	}
	u.ClientID = c.ClientID
	return u
}
