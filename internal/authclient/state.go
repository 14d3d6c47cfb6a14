// Package authclient is the client side of the dashboard session: a state
// machine that resolves the session from the refresh cookie, plus an HTTP
// gateway to the session endpoints.
package authclient

import "insights-dashboard/internal/auth"

// State is a phase of the session lifecycle.
type State int

const (
	Unresolved State = iota
	Resolving
	Authenticated
	Anonymous
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Resolving:
		return "resolving"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of the manager. User is nil unless State is
// Authenticated. Loading is true until the first resolution settles and
// during every later one.
type Snapshot struct {
	State   State
	User    *auth.User
	Loading bool
}

func snapshotOf(s State, u *auth.User) Snapshot {
	var cp *auth.User
	if u != nil && s == Authenticated {
		v := *u
		v.Groups = append([]string(nil), u.Groups...)
		cp = &v
	}
	return Snapshot{State: s, User: cp, Loading: s == Unresolved || s == Resolving}
}
