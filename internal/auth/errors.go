package auth

import "errors"

// Error taxonomy shared by the session gateway, the MFA routes and the client
// state machine. Handlers classify with errors.Is; wrapped causes stay server-side.
var (
	// ErrMissingParameter is a client input validation failure (400).
	ErrMissingParameter = errors.New("missing parameter")
	// ErrUnauthenticated means no or invalid session credential (401).
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidCode means the identity provider rejected an MFA code (400).
	ErrInvalidCode = errors.New("invalid code")
	// ErrProviderError is an upstream identity-provider failure (500).
	ErrProviderError = errors.New("identity provider error")
	// ErrTokenExchangeFailed means the refresh exchange returned no usable tokens (401).
	ErrTokenExchangeFailed = errors.New("token exchange failed")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMFARequired        = errors.New("mfa required")

	// ErrMalformedToken is returned by claim decoding.
	ErrMalformedToken = errors.New("malformed token")
)
