package session

import (
	"context"
	"errors"
	"fmt"

	"insights-dashboard/internal/audit"
	"insights-dashboard/internal/auth"
	"insights-dashboard/internal/idp"
)

// Authenticator is the part of the identity provider used to start and end
// sessions.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (idp.Tokens, error)
	RespondToMFAChallenge(ctx context.Context, ch idp.MFAChallenge, code string) (idp.Tokens, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Login is a fresh session. RefreshToken is the long-lived credential the
// boundary stores in the refresh cookie; it is never serialized.
type Login struct {
	Result
	RefreshToken string `json:"-"`
}

type SignInService struct {
	provider Authenticator
	decoder  auth.Decoder
	audit    Recorder
}

func NewSignInService(provider Authenticator, decoder auth.Decoder, rec Recorder) *SignInService {
	if decoder == nil {
		decoder = auth.UnverifiedDecoder{}
	}
	return &SignInService{provider: provider, decoder: decoder, audit: rec}
}

// SignIn authenticates with email and password. auth.ErrInvalidCredentials
// and auth.ErrMFARequired (an *idp.ChallengeError) are returned unchanged.
func (s *SignInService) SignIn(ctx context.Context, email, password string) (Login, error) {
	if email == "" || password == "" {
		return Login{}, fmt.Errorf("%w: email and password", auth.ErrMissingParameter)
	}
	tok, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return Login{}, classify(err)
	}
	return s.complete(ctx, tok)
}

// ConfirmMFA answers the challenge returned by SignIn.
func (s *SignInService) ConfirmMFA(ctx context.Context, ch idp.MFAChallenge, code string) (Login, error) {
	if ch.Username == "" || ch.Session == "" || code == "" {
		return Login{}, fmt.Errorf("%w: challenge and code", auth.ErrMissingParameter)
	}
	tok, err := s.provider.RespondToMFAChallenge(ctx, ch, code)
	if err != nil {
		return Login{}, classify(err)
	}
	return s.complete(ctx, tok)
}

// SignOut revokes every token the provider issued to the user.
func (s *SignInService) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return fmt.Errorf("%w: accessToken", auth.ErrMissingParameter)
	}
	if err := s.provider.SignOut(ctx, accessToken); err != nil {
		return classify(err)
	}
	return nil
}

func (s *SignInService) complete(ctx context.Context, tok idp.Tokens) (Login, error) {
	if !tok.Complete() || tok.RefreshToken == "" {
		return Login{}, fmt.Errorf("%w: provider returned incomplete tokens", auth.ErrTokenExchangeFailed)
	}
	claims, err := s.decoder.Decode(ctx, tok.IDToken)
	if err != nil {
		return Login{}, fmt.Errorf("%w: %w", auth.ErrTokenExchangeFailed, err)
	}
	user := auth.ResolveUser(claims)

	if s.audit != nil {
		s.audit.Record(ctx, audit.Event{
			TenantID:   user.ClientID,
			Type:       audit.EventTypeSignedIn,
			ActorEmail: user.Email,
			Message:    "signed in",
		})
	}

	return Login{
		Result:       Result{IDToken: tok.IDToken, AccessToken: tok.AccessToken, User: user},
		RefreshToken: tok.RefreshToken,
	}, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrMFARequired),
		errors.Is(err, auth.ErrInvalidCode),
		errors.Is(err, auth.ErrProviderError):
		return err
	default:
		return fmt.Errorf("%w: %w", auth.ErrProviderError, err)
	}
}
