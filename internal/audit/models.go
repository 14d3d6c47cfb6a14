package audit

import "time"

// Event is an immutable, append-only record of an authentication action.
//
// Invariants:
// - Events are never updated or deleted.
// - Tokens, codes and secrets are never recorded.
// - actor and ip capture are best-effort; do not block auth flows on audit failures.
type Event struct {
	ID string `json:"id" db:"id"`

	// TenantID is the client id of the actor; empty for owners.
	TenantID string `json:"tenant_id,omitempty" db:"tenant_id"`

	Type EventType `json:"type" db:"type"`

	ActorEmail string `json:"actor_email,omitempty" db:"actor_email"`
	IPAddress  string `json:"ip_address,omitempty" db:"ip_address"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeSessionRefreshed EventType = "session_refreshed"
	EventTypeSignedIn         EventType = "signed_in"
	EventTypeMFAEnabled       EventType = "mfa_enabled"
	EventTypeMFADisabled      EventType = "mfa_disabled"
)
