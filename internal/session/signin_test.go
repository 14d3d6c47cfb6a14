package session

import (
	"context"
	"errors"
	"testing"

	"insights-dashboard/internal/audit"
	"insights-dashboard/internal/auth"
	"insights-dashboard/internal/idp"
	"insights-dashboard/internal/idp/idpfake"
	"insights-dashboard/pkg/logger"

	"golang.org/x/crypto/bcrypt"
)

func newFake(t *testing.T, users ...idpfake.User) *idpfake.Provider {
	t.Helper()
	p, err := idpfake.New(idpfake.Options{Secret: "s", BcryptCost: bcrypt.MinCost, Users: users})
	if err != nil {
		t.Fatalf("new fake: %v", err)
	}
	return p
}

func TestSignIn_ReturnsRefreshTokenAndAudits(t *testing.T) {
	p := newFake(t, idpfake.User{Email: "c@example.com", Password: "pw", Role: "client", ClientID: "t1"})
	repo := audit.NewMemoryRepo()
	svc := NewSignInService(p, p.Verifier(), audit.NewService(repo, logger.Discard()))

	login, err := svc.SignIn(context.Background(), "c@example.com", "pw")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if login.RefreshToken == "" || login.IDToken == "" {
		t.Fatalf("expected tokens, got %+v", login)
	}
	if login.User.ClientID != "t1" || login.User.Role != auth.RoleClient {
		t.Fatalf("unexpected user %+v", login.User)
	}
	if evs := repo.Events(); len(evs) != 1 || evs[0].Type != audit.EventTypeSignedIn || evs[0].TenantID != "t1" {
		t.Fatalf("unexpected audit trail: %+v", evs)
	}
}

func TestSignIn_PropagatesCredentialErrors(t *testing.T) {
	p := newFake(t, idpfake.User{Email: "c@example.com", Password: "pw"})
	svc := NewSignInService(p, nil, nil)

	if _, err := svc.SignIn(context.Background(), "c@example.com", "bad"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := svc.SignIn(context.Background(), "", "pw"); !errors.Is(err, auth.ErrMissingParameter) {
		t.Fatalf("expected missing parameter, got %v", err)
	}

	p.FailNext(idpfake.OpSignIn, errors.New("InternalErrorException"))
	if _, err := svc.SignIn(context.Background(), "c@example.com", "pw"); !errors.Is(err, auth.ErrProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestSignIn_ChallengeThenConfirm(t *testing.T) {
	p := newFake(t, idpfake.User{Email: "o@example.com", Password: "pw", Role: "owner", MFAEnabled: true})
	svc := NewSignInService(p, p.Verifier(), nil)
	ctx := context.Background()

	_, err := svc.SignIn(ctx, "o@example.com", "pw")
	var ch *idp.ChallengeError
	if !errors.As(err, &ch) {
		t.Fatalf("expected challenge, got %v", err)
	}

	if _, err := svc.ConfirmMFA(ctx, ch.Challenge, "999999"); !errors.Is(err, auth.ErrInvalidCode) {
		t.Fatalf("expected invalid code, got %v", err)
	}
	login, err := svc.ConfirmMFA(ctx, ch.Challenge, idpfake.DefaultValidCode)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if login.User.Role != auth.RoleOwner {
		t.Fatalf("expected owner, got %+v", login.User)
	}
}

func TestSignOut_RevokesRefreshToken(t *testing.T) {
	p := newFake(t, idpfake.User{Email: "c@example.com", Password: "pw"})
	svc := NewSignInService(p, nil, nil)
	ctx := context.Background()

	login, err := svc.SignIn(ctx, "c@example.com", "pw")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if err := svc.SignOut(ctx, login.AccessToken); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if _, err := NewService(p, nil, nil).Exchange(ctx, login.RefreshToken); !errors.Is(err, auth.ErrTokenExchangeFailed) {
		t.Fatalf("expected exchange failure after sign out, got %v", err)
	}
	if err := svc.SignOut(ctx, ""); !errors.Is(err, auth.ErrMissingParameter) {
		t.Fatalf("expected missing parameter, got %v", err)
	}
}
