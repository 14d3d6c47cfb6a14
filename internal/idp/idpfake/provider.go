// Package idpfake is an in-memory identity provider with the same contract
// as the hosted one. It backs tests and IDP_PROVIDER=fake local runs.
package idpfake

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"sync"
	"time"

	"insights-dashboard/internal/auth"
	"insights-dashboard/internal/idp"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Op names a provider operation for failure injection and call counting.
type Op string

const (
	OpSignIn    Op = "SignIn"
	OpRespond   Op = "RespondToMFAChallenge"
	OpRefresh   Op = "RefreshTokens"
	OpSignOut   Op = "SignOut"
	OpAssociate Op = "AssociateSoftwareToken"
	OpVerify    Op = "VerifySoftwareToken"
	OpSetMFA    Op = "SetSoftwareTokenMFA"
	OpGetUser   Op = "GetUser"
)

// DefaultValidCode is the one-time code the fake accepts unless configured.
const DefaultValidCode = "000000"

var errNotAuthorized = errors.New("NotAuthorizedException")

type Options struct {
	Secret     string
	Issuer     string
	ClientID   string
	Users      []User
	ValidCode  string
	AccessTTL  time.Duration
	IDTTL      time.Duration
	BcryptCost int
	Now        func() time.Time
}

type account struct {
	sub      string
	email    string
	role     string
	clientID string
	groups   []string
	hash     []byte

	pendingSecret string
	verified      bool
	mfaEnabled    bool
	mfaPreferred  bool
}

type Provider struct {
	mu sync.Mutex

	m         minter
	now       func() time.Time
	validCode string
	cost      int

	accounts   map[string]*account
	refresh    map[string]string
	access     map[string]string
	challenges map[string]string

	failures map[Op]error
	calls    map[Op]int
}

var _ idp.Provider = (*Provider)(nil)

func New(opts Options) (*Provider, error) {
	if opts.Secret == "" {
		return nil, errors.New("idpfake: secret is required")
	}
	if opts.Issuer == "" {
		opts.Issuer = "https://idp.local/fake"
	}
	if opts.ClientID == "" {
		opts.ClientID = "dashboard"
	}
	if opts.ValidCode == "" {
		opts.ValidCode = DefaultValidCode
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = time.Hour
	}
	if opts.IDTTL <= 0 {
		opts.IDTTL = time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	p := &Provider{
		m: minter{
			secret:    []byte(opts.Secret),
			issuer:    opts.Issuer,
			clientID:  opts.ClientID,
			accessTTL: opts.AccessTTL,
			idTTL:     opts.IDTTL,
		},
		now:        opts.Now,
		validCode:  opts.ValidCode,
		cost:       opts.BcryptCost,
		accounts:   map[string]*account{},
		refresh:    map[string]string{},
		access:     map[string]string{},
		challenges: map[string]string{},
		failures:   map[Op]error{},
		calls:      map[Op]int{},
	}
	for _, u := range opts.Users {
		if err := p.AddUser(u); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// AddUser registers u, hashing its password.
func (p *Provider) AddUser(u User) error {
	if u.Email == "" || u.Password == "" {
		return errors.New("idpfake: email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), p.cost)
	if err != nil {
		return fmt.Errorf("idpfake: hash password: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts[u.Email] = &account{
		sub:          uuid.NewString(),
		email:        u.Email,
		role:         u.Role,
		clientID:     u.ClientID,
		groups:       append([]string(nil), u.Groups...),
		hash:         hash,
		verified:     u.MFAEnabled,
		mfaEnabled:   u.MFAEnabled,
		mfaPreferred: u.MFAEnabled,
	}
	return nil
}

// Verifier returns a decoder that accepts ID tokens minted by p.
func (p *Provider) Verifier() Verifier {
	return Verifier{m: p.m, now: p.now}
}

// FailNext makes the next call of op return err wrapped as a provider error.
func (p *Provider) FailNext(op Op, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[op] = err
}

// Calls returns how many times op has been invoked.
func (p *Provider) Calls(op Op) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

// enter records a call and pops an injected failure. Callers hold p.mu.
func (p *Provider) enter(op Op) error {
	p.calls[op]++
	if err, ok := p.failures[op]; ok {
		delete(p.failures, op)
		return providerError(op, err)
	}
	return nil
}

func (p *Provider) SignIn(_ context.Context, email, password string) (idp.Tokens, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpSignIn); err != nil {
		return idp.Tokens{}, err
	}

	a, ok := p.accounts[email]
	if !ok || bcrypt.CompareHashAndPassword(a.hash, []byte(password)) != nil {
		return idp.Tokens{}, fmt.Errorf("%s: %w", OpSignIn, auth.ErrInvalidCredentials)
	}
	if a.mfaEnabled {
		session := uuid.NewString()
		p.challenges[session] = email
		return idp.Tokens{}, &idp.ChallengeError{Challenge: idp.MFAChallenge{Username: email, Session: session}}
	}
	return p.issue(a, true)
}

func (p *Provider) RespondToMFAChallenge(_ context.Context, ch idp.MFAChallenge, code string) (idp.Tokens, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpRespond); err != nil {
		return idp.Tokens{}, err
	}

	email, ok := p.challenges[ch.Session]
	if !ok || email != ch.Username {
		return idp.Tokens{}, fmt.Errorf("%s: %w", OpRespond, auth.ErrInvalidCredentials)
	}
	if code != p.validCode {
		return idp.Tokens{}, fmt.Errorf("%s: %w", OpRespond, auth.ErrInvalidCode)
	}
	delete(p.challenges, ch.Session)
	return p.issue(p.accounts[email], true)
}

// RefreshTokens issues a new ID/access pair. Like the hosted provider's
// default, the refresh token itself is not rotated.
func (p *Provider) RefreshTokens(_ context.Context, refreshToken string) (idp.Tokens, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpRefresh); err != nil {
		return idp.Tokens{}, err
	}

	email, ok := p.refresh[refreshToken]
	if !ok {
		return idp.Tokens{}, providerError(OpRefresh, errNotAuthorized)
	}
	return p.issue(p.accounts[email], false)
}

// SignOut revokes every access and refresh token of the user.
func (p *Provider) SignOut(_ context.Context, accessToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpSignOut); err != nil {
		return err
	}

	a, err := p.accountFor(OpSignOut, accessToken)
	if err != nil {
		return err
	}
	for tok, email := range p.access {
		if email == a.email {
			delete(p.access, tok)
		}
	}
	for tok, email := range p.refresh {
		if email == a.email {
			delete(p.refresh, tok)
		}
	}
	return nil
}

func (p *Provider) AssociateSoftwareToken(_ context.Context, accessToken string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpAssociate); err != nil {
		return "", err
	}

	a, err := p.accountFor(OpAssociate, accessToken)
	if err != nil {
		return "", err
	}
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", providerError(OpAssociate, err)
	}
	a.pendingSecret = base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf)
	a.verified = false
	return a.pendingSecret, nil
}

func (p *Provider) VerifySoftwareToken(_ context.Context, accessToken, code string) (idp.VerifyStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpVerify); err != nil {
		return "", err
	}

	a, err := p.accountFor(OpVerify, accessToken)
	if err != nil {
		return "", err
	}
	if a.pendingSecret == "" {
		return "", providerError(OpVerify, errors.New("software token not associated"))
	}
	if code != p.validCode {
		return idp.VerifyError, nil
	}
	a.verified = true
	return idp.VerifySuccess, nil
}

func (p *Provider) SetSoftwareTokenMFA(_ context.Context, accessToken string, enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpSetMFA); err != nil {
		return err
	}

	a, err := p.accountFor(OpSetMFA, accessToken)
	if err != nil {
		return err
	}
	if enabled && !a.verified {
		return providerError(OpSetMFA, errors.New("software token not verified"))
	}
	a.mfaEnabled = enabled
	a.mfaPreferred = enabled
	return nil
}

func (p *Provider) GetUser(_ context.Context, accessToken string) (idp.UserInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpGetUser); err != nil {
		return idp.UserInfo{}, err
	}

	a, err := p.accountFor(OpGetUser, accessToken)
	if err != nil {
		return idp.UserInfo{}, err
	}
	u := idp.UserInfo{Username: a.sub, Email: a.email, ClientID: a.clientID}
	if a.mfaEnabled {
		u.EnabledMFA = []string{idp.MFASoftwareToken}
	}
	if a.mfaPreferred {
		u.PreferredMFA = idp.MFASoftwareToken
	}
	return u, nil
}

// issue mints a token set for a. Callers hold p.mu.
func (p *Provider) issue(a *account, withRefresh bool) (idp.Tokens, error) {
	now := p.now()
	id, err := p.m.issueID(now, a)
	if err != nil {
		return idp.Tokens{}, providerError("issue", err)
	}
	acc, err := p.m.issueAccess(now, a)
	if err != nil {
		return idp.Tokens{}, providerError("issue", err)
	}
	p.access[acc] = a.email

	t := idp.Tokens{IDToken: id, AccessToken: acc, ExpiresIn: p.m.accessTTL}
	if withRefresh {
		t.RefreshToken = uuid.NewString()
		p.refresh[t.RefreshToken] = a.email
	}
	return t, nil
}

// accountFor resolves a live access token. Callers hold p.mu.
func (p *Provider) accountFor(op Op, accessToken string) (*account, error) {
	if _, err := p.m.verifyAccess(p.now(), accessToken); err != nil {
		return nil, providerError(op, fmt.Errorf("%w: %v", errNotAuthorized, err))
	}
	email, ok := p.access[accessToken]
	if !ok {
		return nil, providerError(op, fmt.Errorf("%w: access token revoked", errNotAuthorized))
	}
	return p.accounts[email], nil
}

func providerError(op Op, err error) error {
	return fmt.Errorf("%s: %w: %w", op, auth.ErrProviderError, err)
}
