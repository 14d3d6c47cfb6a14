// Package mfa proxies authenticator-app MFA management to the identity
// provider. Every operation is stateless and authorized by a caller-supplied
// access token.
package mfa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"insights-dashboard/internal/audit"
	"insights-dashboard/internal/auth"
	"insights-dashboard/internal/idp"
)

// ErrVerifiedNotEnabled is the "verified but not enabled" state: the code was
// accepted but setting the MFA preference failed. It also matches
// auth.ErrProviderError. Calling VerifyAndEnable again with a fresh code
// completes the operation.
var ErrVerifiedNotEnabled = errors.New("mfa verified but not enabled")

// ErrRateLimited means the verify attempt cap for this access token was hit.
var ErrRateLimited = errors.New("too many verify attempts")

// Provider is the part of the identity provider the MFA routes need.
type Provider interface {
	AssociateSoftwareToken(ctx context.Context, accessToken string) (string, error)
	VerifySoftwareToken(ctx context.Context, accessToken, code string) (idp.VerifyStatus, error)
	SetSoftwareTokenMFA(ctx context.Context, accessToken string, enabled bool) error
	GetUser(ctx context.Context, accessToken string) (idp.UserInfo, error)
}

// Recorder receives best-effort audit events.
type Recorder interface {
	Record(ctx context.Context, e audit.Event)
}

type Options struct {
	// Limiter caps verify attempts. Nil disables the cap.
	Limiter Limiter
	Audit   Recorder
	Logger  *slog.Logger
}

type Service struct {
	provider Provider
	limiter  Limiter
	audit    Recorder
	log      *slog.Logger
}

func NewService(p Provider, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{provider: p, limiter: opts.Limiter, audit: opts.Audit, log: log}
}

// InitiateSetup returns the shared secret to load into an authenticator app.
func (s *Service) InitiateSetup(ctx context.Context, accessToken string) (string, error) {
	if accessToken == "" {
		return "", fmt.Errorf("%w: accessToken", auth.ErrMissingParameter)
	}
	secret, err := s.provider.AssociateSoftwareToken(ctx, accessToken)
	if err != nil {
		return "", asProviderError("associate software token", err)
	}
	return secret, nil
}

// VerifyAndEnable runs two provider calls: verify the code, then set the
// software token as the enabled and preferred MFA method. A status other than
// SUCCESS fails with auth.ErrInvalidCode and the second call is never made.
// A failure of the second call returns ErrVerifiedNotEnabled.
func (s *Service) VerifyAndEnable(ctx context.Context, accessToken, code string) error {
	if accessToken == "" {
		return fmt.Errorf("%w: accessToken", auth.ErrMissingParameter)
	}
	if code == "" {
		return fmt.Errorf("%w: code", auth.ErrMissingParameter)
	}

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, accessToken)
		if err != nil {
			// An unavailable limiter must not lock users out of enrollment.
			s.log.WarnContext(ctx, "mfa attempt limiter unavailable", "error", err)
		} else if !ok {
			return ErrRateLimited
		}
	}

	status, err := s.provider.VerifySoftwareToken(ctx, accessToken, code)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCode) {
			return err
		}
		return asProviderError("verify software token", err)
	}
	if status != idp.VerifySuccess {
		return fmt.Errorf("%w: status %q", auth.ErrInvalidCode, status)
	}

	if err := s.provider.SetSoftwareTokenMFA(ctx, accessToken, true); err != nil {
		s.log.ErrorContext(ctx, "mfa verified but preference not set", "error", err)
		return fmt.Errorf("%w: %w", ErrVerifiedNotEnabled, asProviderError("set mfa preference", err))
	}

	s.record(ctx, accessToken, audit.EventTypeMFAEnabled, "software token mfa enabled")
	return nil
}

// Status reports whether software token MFA is among the user's enabled methods.
func (s *Service) Status(ctx context.Context, accessToken string) (bool, error) {
	if accessToken == "" {
		return false, fmt.Errorf("%w: accessToken", auth.ErrMissingParameter)
	}
	u, err := s.provider.GetUser(ctx, accessToken)
	if err != nil {
		return false, asProviderError("get user", err)
	}
	return u.SoftwareTokenEnabled(), nil
}

// Disable turns software token MFA off and un-prefers it, whatever its current state.
func (s *Service) Disable(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return fmt.Errorf("%w: accessToken", auth.ErrMissingParameter)
	}
	if err := s.provider.SetSoftwareTokenMFA(ctx, accessToken, false); err != nil {
		return asProviderError("set mfa preference", err)
	}
	s.record(ctx, accessToken, audit.EventTypeMFADisabled, "software token mfa disabled")
	return nil
}

// record attributes the event to the access token's owner. The MFA routes
// carry no resolved identity, so the actor is looked up at the provider; a
// failed lookup still records the event without an actor.
func (s *Service) record(ctx context.Context, accessToken string, typ audit.EventType, msg string) {
	if s.audit == nil {
		return
	}
	e := audit.Event{Type: typ, Message: msg}
	if u, err := auth.UserFrom(ctx); err == nil {
		e.ActorEmail = u.Email
		e.TenantID = u.ClientID
	} else if info, err := s.provider.GetUser(ctx, accessToken); err == nil {
		e.ActorEmail = info.Email
		e.TenantID = info.ClientID
	} else {
		s.log.WarnContext(ctx, "mfa audit actor lookup failed", "type", string(typ), "error", err)
	}
	s.audit.Record(ctx, e)
}

func asProviderError(op string, err error) error {
	if errors.Is(err, auth.ErrProviderError) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, auth.ErrProviderError, err)
}
