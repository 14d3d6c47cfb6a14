// Package session exchanges a refresh credential for a fresh ID/access token
// pair and the resolved dashboard user.
package session

import (
	"context"
	"errors"
	"fmt"

	"insights-dashboard/internal/audit"
	"insights-dashboard/internal/auth"
	"insights-dashboard/internal/idp"
)

// Refresher is the part of the identity provider the exchange needs.
type Refresher interface {
	RefreshTokens(ctx context.Context, refreshToken string) (idp.Tokens, error)
}

// Recorder receives best-effort audit events.
type Recorder interface {
	Record(ctx context.Context, e audit.Event)
}

// Result is what a successful exchange hands back to the caller.
type Result struct {
	IDToken     string    `json:"idToken"`
	AccessToken string    `json:"accessToken"`
	User        auth.User `json:"user"`
}

type Service struct {
	provider Refresher
	decoder  auth.Decoder
	audit    Recorder
}

// NewService wires the exchange. decoder is applied to ID tokens just
// received from the provider; rec may be nil.
func NewService(provider Refresher, decoder auth.Decoder, rec Recorder) *Service {
	if decoder == nil {
		decoder = auth.UnverifiedDecoder{}
	}
	return &Service{provider: provider, decoder: decoder, audit: rec}
}

// Exchange trades refreshToken for a new token pair. An empty token fails
// with auth.ErrUnauthenticated without contacting the provider; every other
// failure is auth.ErrTokenExchangeFailed. The caller's refresh credential is
// never modified here.
func (s *Service) Exchange(ctx context.Context, refreshToken string) (Result, error) {
	if refreshToken == "" {
		return Result{}, auth.ErrUnauthenticated
	}

	tok, err := s.provider.RefreshTokens(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExchangeFailed) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: %w", auth.ErrTokenExchangeFailed, err)
	}
	if !tok.Complete() {
		return Result{}, fmt.Errorf("%w: provider returned incomplete tokens", auth.ErrTokenExchangeFailed)
	}

	claims, err := s.decoder.Decode(ctx, tok.IDToken)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", auth.ErrTokenExchangeFailed, err)
	}
	user := auth.ResolveUser(claims)

	if s.audit != nil {
		s.audit.Record(ctx, audit.Event{
			TenantID:   user.ClientID,
			Type:       audit.EventTypeSessionRefreshed,
			ActorEmail: user.Email,
			Message:    "session refreshed",
		})
	}

	return Result{IDToken: tok.IDToken, AccessToken: tok.AccessToken, User: user}, nil
}
