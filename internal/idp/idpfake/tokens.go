package idpfake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"insights-dashboard/internal/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// accessClaims mirrors the provider's access token shape.
type accessClaims struct {
	jwt.RegisteredClaims

	Username string `json:"username"`
	ClientID string `json:"client_id"`
	TokenUse string `json:"token_use"`
}

type minter struct {
	secret    []byte
	issuer    string
	clientID  string
	accessTTL time.Duration
	idTTL     time.Duration
}

func (m minter) issueID(now time.Time, a *account) (string, error) {
	claims := auth.IDTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   a.sub,
			Audience:  jwt.ClaimStrings{m.clientID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.idTTL)),
			ID:        uuid.NewString(),
		},
		Email:    a.email,
		Role:     a.role,
		ClientID: a.clientID,
		Groups:   a.groups,
		TokenUse: "id",
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m minter) issueAccess(now time.Time, a *account) (string, error) {
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   a.sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
			ID:        uuid.NewString(),
		},
		Username: a.email,
		ClientID: m.clientID,
		TokenUse: "access",
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m minter) parser(now time.Time, extra ...jwt.ParserOption) *jwt.Parser {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}
	return jwt.NewParser(append(opts, extra...)...)
}

func (m minter) keyFunc(*jwt.Token) (any, error) { return m.secret, nil }

func (m minter) verifyAccess(now time.Time, raw string) (accessClaims, error) {
	var c accessClaims
	if _, err := m.parser(now).ParseWithClaims(raw, &c, m.keyFunc); err != nil {
		return accessClaims{}, err
	}
	if c.TokenUse != "access" {
		return accessClaims{}, errors.New("token_use mismatch")
	}
	return c, nil
}

func (m minter) verifyID(now time.Time, raw string) (auth.IDTokenClaims, error) {
	var c auth.IDTokenClaims
	if _, err := m.parser(now, jwt.WithAudience(m.clientID)).ParseWithClaims(raw, &c, m.keyFunc); err != nil {
		return auth.IDTokenClaims{}, err
	}
	if c.TokenUse != "id" {
		return auth.IDTokenClaims{}, errors.New("token_use mismatch")
	}
	return c, nil
}

// Verifier checks ID tokens minted by a fake provider: signature, issuer,
// audience and expiry.
type Verifier struct {
	m   minter
	now func() time.Time
}

var _ auth.Decoder = Verifier{}

func (v Verifier) Decode(_ context.Context, idToken string) (auth.IDTokenClaims, error) {
	c, err := v.m.verifyID(v.now(), idToken)
	if err != nil {
		return auth.IDTokenClaims{}, fmt.Errorf("%w: %v", auth.ErrUnauthenticated, err)
	}
	return c, nil
}
