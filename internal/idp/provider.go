// Package idp is the boundary to the hosted identity provider. Everything
// behind Provider is treated as a black box returning tokens, claims and
// status enums.
package idp

import (
	"context"
	"time"

	"insights-dashboard/internal/auth"
)

// Tokens is what the provider returns from an authentication flow.
// RefreshToken is empty on refresh flows that do not rotate.
type Tokens struct {
	IDToken      string
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// Complete reports whether both session tokens are present.
func (t Tokens) Complete() bool { return t.IDToken != "" && t.AccessToken != "" }

// MFAChallenge is the state needed to answer a software-token challenge.
type MFAChallenge struct {
	Username string `json:"username"`
	Session  string `json:"session"`
}

// ChallengeError is returned by SignIn when a one-time code is required.
// errors.Is(err, auth.ErrMFARequired) holds for it.
type ChallengeError struct {
	Challenge MFAChallenge
}

func (e *ChallengeError) Error() string { return "sign-in requires a software token code" }

func (e *ChallengeError) Unwrap() error { return auth.ErrMFARequired }

// VerifyStatus mirrors the provider's software token verification result.
type VerifyStatus string

const (
	VerifySuccess VerifyStatus = "SUCCESS"
	VerifyError   VerifyStatus = "ERROR"
)

// MFASoftwareToken is the provider's name for authenticator-app MFA.
const MFASoftwareToken = "SOFTWARE_TOKEN_MFA"

// UserInfo is the subset of the provider's user record used here.
type UserInfo struct {
	Username     string
	Email        string
	ClientID     string
	EnabledMFA   []string
	PreferredMFA string
}

// SoftwareTokenEnabled reports whether authenticator-app MFA is in the
// enabled-methods list. An absent list means false.
func (u UserInfo) SoftwareTokenEnabled() bool {
	for _, m := range u.EnabledMFA {
		if m == MFASoftwareToken {
			return true
		}
	}
	return false
}

// Provider is the full identity-provider contract. Consumers depend on the
// narrower interfaces they declare themselves.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (Tokens, error)
	RespondToMFAChallenge(ctx context.Context, ch MFAChallenge, code string) (Tokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (Tokens, error)
	SignOut(ctx context.Context, accessToken string) error

	AssociateSoftwareToken(ctx context.Context, accessToken string) (string, error)
	VerifySoftwareToken(ctx context.Context, accessToken, code string) (VerifyStatus, error)
	SetSoftwareTokenMFA(ctx context.Context, accessToken string, enabled bool) error
	GetUser(ctx context.Context, accessToken string) (UserInfo, error)
}
