package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"insights-dashboard/internal/auth"
	"insights-dashboard/internal/idp"
	"insights-dashboard/internal/mfa"
	"insights-dashboard/internal/session"
)

// APIError is a non-2xx answer from the dashboard API. It unwraps to the
// matching sentinel of the auth error taxonomy.
type APIError struct {
	Status  int
	Message string

	body string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dashboard api: %d %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized && e.Message == "Token refresh failed":
		return auth.ErrTokenExchangeFailed
	case e.Status == http.StatusUnauthorized:
		return auth.ErrUnauthenticated
	case e.Status == http.StatusTooManyRequests:
		return mfa.ErrRateLimited
	case e.Status == http.StatusBadRequest && e.Message == "Invalid code":
		return auth.ErrInvalidCode
	case e.Status == http.StatusBadRequest:
		return auth.ErrMissingParameter
	case e.Status >= http.StatusInternalServerError:
		return auth.ErrProviderError
	default:
		return nil
	}
}

// Client talks to the session endpoints. The refresh cookie lives in the
// http.Client's jar, like in a browser; this type never reads it.
type Client struct {
	base *url.URL
	hc   *http.Client
}

var (
	_ Gateway     = (*Client)(nil)
	_ Credentials = (*Client)(nil)
)

// NewClient builds a client for baseURL. When hc is nil a client with an
// in-memory cookie jar is created; a caller-supplied client must carry a jar.
func NewClient(baseURL string, hc *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if hc == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		hc = &http.Client{Jar: jar, Timeout: 15 * time.Second}
	}
	if hc.Jar == nil {
		return nil, errors.New("authclient: http client must have a cookie jar")
	}
	return &Client{base: u, hc: hc}, nil
}

func (c *Client) Refresh(ctx context.Context) (session.Result, error) {
	var res session.Result
	if err := c.do(ctx, http.MethodGet, "/api/auth/refresh", nil, &res); err != nil {
		return session.Result{}, err
	}
	return res, nil
}

func (c *Client) StoreRefreshToken(ctx context.Context, refreshToken string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/store-token", map[string]string{"refreshToken": refreshToken}, nil)
}

func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

type tokenResponse struct {
	IDToken     string `json:"idToken"`
	AccessToken string `json:"accessToken"`
}

type challengeResponse struct {
	MFARequired bool   `json:"mfaRequired"`
	Session     string `json:"session"`
}

// SignIn signs in through the API, which sets the refresh cookie itself.
// The returned Tokens have no RefreshToken.
func (c *Client) SignIn(ctx context.Context, email, password string) (idp.Tokens, error) {
	return c.signIn(ctx, email, map[string]string{"email": email, "password": password})
}

func (c *Client) RespondToMFAChallenge(ctx context.Context, ch idp.MFAChallenge, code string) (idp.Tokens, error) {
	return c.signIn(ctx, ch.Username, map[string]string{"email": ch.Username, "session": ch.Session, "mfaCode": code})
}

func (c *Client) signIn(ctx context.Context, email string, body any) (idp.Tokens, error) {
	var tr tokenResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/signin", body, &tr)

	var apiErr *APIError
	switch {
	case err == nil:
		return idp.Tokens{IDToken: tr.IDToken, AccessToken: tr.AccessToken}, nil
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized:
		return idp.Tokens{}, fmt.Errorf("%w: %w", auth.ErrInvalidCredentials, err)
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict:
		var cr challengeResponse
		if jerr := json.Unmarshal([]byte(apiErr.body), &cr); jerr != nil || cr.Session == "" {
			return idp.Tokens{}, fmt.Errorf("%w: %w", auth.ErrMFARequired, err)
		}
		return idp.Tokens{}, &idp.ChallengeError{Challenge: idp.MFAChallenge{Username: email, Session: cr.Session}}
	default:
		return idp.Tokens{}, err
	}
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/signout", map[string]string{"accessToken": accessToken}, nil)
}

func (c *Client) MFASetup(ctx context.Context, accessToken string) (string, error) {
	var out struct {
		SecretCode string `json:"secretCode"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/mfa/setup", map[string]string{"accessToken": accessToken}, &out); err != nil {
		return "", err
	}
	return out.SecretCode, nil
}

func (c *Client) MFAVerify(ctx context.Context, accessToken, code string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/mfa/verify", map[string]string{"accessToken": accessToken, "code": code}, nil)
}

func (c *Client) MFAStatus(ctx context.Context, accessToken string) (bool, error) {
	var out struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/mfa/status", map[string]string{"accessToken": accessToken}, &out); err != nil {
		return false, err
	}
	return out.Enabled, nil
}

func (c *Client) MFADisable(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/mfa/disable", map[string]string{"accessToken": accessToken}, nil)
}

// Me asks the API who the bearer is. The request goes through the client's
// transport, so wrap it with BearerTransport.
func (c *Client) Me(ctx context.Context) (auth.User, error) {
	var u auth.User
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &u); err != nil {
		return auth.User{}, err
	}
	return u, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	u := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		return &APIError{Status: resp.StatusCode, Message: e.Error, body: string(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}
