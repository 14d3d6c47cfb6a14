package authclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"insights-dashboard/internal/auth"
	"insights-dashboard/internal/idp"
	"insights-dashboard/internal/session"
	"insights-dashboard/internal/tokenstore"
)

// Routes the manager navigates to.
const (
	RouteDashboard = "/dashboard"
	RouteLogin     = "/login"
)

// ErrCleanupIncomplete is returned by SignOut when provider sign-out or the
// cookie clear failed. Local state is cleared and navigation happened anyway.
var ErrCleanupIncomplete = errors.New("sign-out cleanup incomplete")

var (
	errDisposed   = errors.New("authclient: manager disposed")
	errSuperseded = errors.New("authclient: signed out during session resolution")
)

// Gateway is the refresh cookie boundary.
type Gateway interface {
	Refresh(ctx context.Context) (session.Result, error)
	StoreRefreshToken(ctx context.Context, refreshToken string) error
	Clear(ctx context.Context) error
}

// Credentials verifies credentials with the identity provider. An
// implementation that establishes the refresh cookie itself returns Tokens
// with an empty RefreshToken.
type Credentials interface {
	SignIn(ctx context.Context, email, password string) (idp.Tokens, error)
	RespondToMFAChallenge(ctx context.Context, ch idp.MFAChallenge, code string) (idp.Tokens, error)
	SignOut(ctx context.Context, accessToken string) error
}

type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

type Options struct {
	Gateway     Gateway
	Credentials Credentials
	// Tokens receives the token pair of every resolution. A new store is
	// created when nil.
	Tokens    *tokenstore.Store
	Navigator Navigator
	Logger    *slog.Logger
}

// Manager owns one session. Construct one per UI instance, call Init once
// and Dispose when done.
type Manager struct {
	gateway     Gateway
	credentials Credentials
	tokens      *tokenstore.Store
	nav         Navigator
	log         *slog.Logger

	mu       sync.Mutex
	state    State
	user     *auth.User
	subs     map[int]func(Snapshot)
	nextSub  int
	disposed bool
	// gen is bumped by SignOut. A resolution only commits if gen is
	// unchanged since it started.
	gen uint64
}

func NewManager(opts Options) (*Manager, error) {
	if opts.Gateway == nil {
		return nil, errors.New("authclient: gateway is required")
	}
	if opts.Tokens == nil {
		opts.Tokens = tokenstore.New()
	}
	if opts.Navigator == nil {
		opts.Navigator = NavigatorFunc(func(string) {})
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{
		gateway:     opts.Gateway,
		credentials: opts.Credentials,
		tokens:      opts.Tokens,
		nav:         opts.Navigator,
		log:         opts.Logger,
		subs:        map[int]func(Snapshot){},
	}, nil
}

// Tokens returns the store outbound requests read from.
func (m *Manager) Tokens() *tokenstore.Store { return m.tokens }

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshotOf(m.state, m.user)
}

// Subscribe registers fn for every state transition. fn runs on the
// goroutine that caused the transition. The returned func unsubscribes.
func (m *Manager) Subscribe(fn func(Snapshot)) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Init resolves the session from the refresh cookie. Failures land in
// Anonymous and are logged, never returned.
func (m *Manager) Init(ctx context.Context) {
	if err := m.resolve(ctx); err != nil {
		m.log.InfoContext(ctx, "session resolution failed", "error", err)
	}
}

// Dispose drops subscribers and the token pair. Later calls are no-ops.
func (m *Manager) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disposed = true
	m.subs = map[int]func(Snapshot){}
	m.user = nil
	m.tokens.Clear()
}

// SignIn verifies credentials, stores the refresh token, re-resolves the
// session and navigates to the dashboard. Provider errors such as
// auth.ErrInvalidCredentials and auth.ErrMFARequired are returned unchanged
// and nothing is retried.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	if m.credentials == nil {
		return errors.New("authclient: no credentials provider")
	}
	tok, err := m.credentials.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	return m.establish(ctx, tok)
}

// ConfirmMFA completes a sign-in that returned an *idp.ChallengeError.
func (m *Manager) ConfirmMFA(ctx context.Context, ch idp.MFAChallenge, code string) error {
	if m.credentials == nil {
		return errors.New("authclient: no credentials provider")
	}
	tok, err := m.credentials.RespondToMFAChallenge(ctx, ch, code)
	if err != nil {
		return err
	}
	return m.establish(ctx, tok)
}

// SignOut clears local state synchronously, then revokes the provider
// session and clears the refresh cookie. It always navigates to the login
// route; cleanup failures are returned wrapped in ErrCleanupIncomplete.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	m.gen++
	m.mu.Unlock()

	access, _ := m.tokens.AccessToken()
	m.tokens.Clear()
	m.transition(Anonymous, nil)

	var errs []error
	if access != "" && m.credentials != nil {
		if err := m.credentials.SignOut(ctx, access); err != nil {
			errs = append(errs, fmt.Errorf("provider sign-out: %w", err))
		}
	}
	if err := m.gateway.Clear(ctx); err != nil {
		errs = append(errs, fmt.Errorf("clear refresh cookie: %w", err))
	}

	m.nav.Navigate(RouteLogin)

	if len(errs) > 0 {
		err := fmt.Errorf("%w: %w", ErrCleanupIncomplete, errors.Join(errs...))
		m.log.WarnContext(ctx, "sign-out cleanup incomplete", "error", err)
		return err
	}
	return nil
}

func (m *Manager) establish(ctx context.Context, tok idp.Tokens) error {
	if tok.RefreshToken != "" {
		if err := m.gateway.StoreRefreshToken(ctx, tok.RefreshToken); err != nil {
			return fmt.Errorf("store refresh token: %w", err)
		}
	}
	if err := m.resolve(ctx); err != nil {
		return err
	}
	m.nav.Navigate(RouteDashboard)
	return nil
}

func (m *Manager) resolve(ctx context.Context) error {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return errDisposed
	}
	gen := m.gen
	snap, subs := m.setLocked(Resolving, nil)
	m.mu.Unlock()
	notify(snap, subs)

	res, err := m.gateway.Refresh(ctx)
	if err != nil {
		if !m.commit(gen, Anonymous, nil, "", "") {
			return m.staleError()
		}
		return err
	}
	u := res.User
	if !m.commit(gen, Authenticated, &u, res.IDToken, res.AccessToken) {
		return m.staleError()
	}
	return nil
}

// commit applies the outcome of the resolution started at gen, tokens
// included. It reports false when SignOut or Dispose ran in between.
func (m *Manager) commit(gen uint64, s State, u *auth.User, idToken, accessToken string) bool {
	m.mu.Lock()
	if m.disposed || m.gen != gen {
		m.mu.Unlock()
		return false
	}
	m.tokens.Set(idToken, accessToken)
	snap, subs := m.setLocked(s, u)
	m.mu.Unlock()
	notify(snap, subs)
	return true
}

func (m *Manager) staleError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return errDisposed
	}
	return errSuperseded
}

func (m *Manager) transition(s State, u *auth.User) {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	snap, subs := m.setLocked(s, u)
	m.mu.Unlock()
	notify(snap, subs)
}

// setLocked stores the new state and returns what subscribers must see.
// Callers hold m.mu and call notify after unlocking.
func (m *Manager) setLocked(s State, u *auth.User) (Snapshot, []func(Snapshot)) {
	m.state = s
	m.user = u
	subs := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	return snapshotOf(s, u), subs
}

func notify(snap Snapshot, subs []func(Snapshot)) {
	for _, fn := range subs {
		fn(snap)
	}
}
