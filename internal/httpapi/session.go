package httpapi

import (
	"errors"
	"net/http"

	"insights-dashboard/internal/auth"
	"insights-dashboard/internal/idp"
	"insights-dashboard/internal/session"
	"insights-dashboard/pkg/logger"

	"github.com/gin-gonic/gin"
)

type storeTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// StoreToken puts the caller's refresh token into the HttpOnly cookie.
func (h Handlers) StoreToken(c *gin.Context) {
	var req storeTokenRequest
	// A malformed body is treated like a missing token.
	_ = c.ShouldBindJSON(&req)
	if req.RefreshToken == "" {
		abortError(c, http.StatusBadRequest, "Missing refresh token")
		return
	}
	h.Cookie.set(c, req.RefreshToken)
	writeOK(c)
}

// Logout clears the refresh cookie. It never fails.
func (h Handlers) Logout(c *gin.Context) {
	h.Cookie.clear(c)
	writeOK(c)
}

// Refresh exchanges the refresh cookie for a new token pair and user.
// The cookie is left untouched on failure.
func (h Handlers) Refresh(c *gin.Context) {
	rt := h.Cookie.read(c)
	if rt == "" {
		abortError(c, http.StatusUnauthorized, "No refresh token")
		return
	}
	if h.Session == nil {
		abortError(c, http.StatusInternalServerError, "session not configured")
		return
	}
	res, err := h.Session.Exchange(requestContext(c), rt)
	if err != nil {
		logger.Endpoint(c, "refresh").Warn("token refresh failed", "error", err)
		abortError(c, http.StatusUnauthorized, "Token refresh failed")
		return
	}
	c.JSON(http.StatusOK, res)
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfaCode,omitempty"`
	Session  string `json:"session,omitempty"`
}

// SignIn authenticates server-side, sets the refresh cookie and returns the
// session tokens. A pending MFA challenge answers 409 with its session.
func (h Handlers) SignIn(c *gin.Context) {
	if h.Login == nil {
		abortError(c, http.StatusInternalServerError, "sign-in not configured")
		return
	}
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid json")
		return
	}

	ctx := requestContext(c)
	var (
		login session.Login
		err   error
	)
	if req.Session != "" {
		login, err = h.Login.ConfirmMFA(ctx, idp.MFAChallenge{Username: req.Email, Session: req.Session}, req.MFACode)
	} else {
		login, err = h.Login.SignIn(ctx, req.Email, req.Password)
	}

	var ch *idp.ChallengeError
	switch {
	case err == nil:
	case errors.As(err, &ch):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":       "MFA code required",
			"mfaRequired": true,
			"session":     ch.Challenge.Session,
		})
		return
	case errors.Is(err, auth.ErrMissingParameter):
		abortError(c, http.StatusBadRequest, "Missing credentials")
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		abortError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	case errors.Is(err, auth.ErrInvalidCode):
		abortError(c, http.StatusBadRequest, "Invalid code")
		return
	default:
		logger.Endpoint(c, "signin").Error("sign-in failed", "error", err)
		abortError(c, http.StatusInternalServerError, "Sign-in failed")
		return
	}

	if login.RefreshToken != "" {
		h.Cookie.set(c, login.RefreshToken)
	}
	c.JSON(http.StatusOK, login.Result)
}

type accessTokenRequest struct {
	AccessToken string `json:"accessToken"`
}

// SignOut revokes the user's tokens at the identity provider. It does not
// touch the cookie; clients call Logout for that.
func (h Handlers) SignOut(c *gin.Context) {
	if h.Login == nil {
		abortError(c, http.StatusInternalServerError, "sign-in not configured")
		return
	}
	var req accessTokenRequest
	_ = c.ShouldBindJSON(&req)
	if req.AccessToken == "" {
		abortError(c, http.StatusBadRequest, "Missing access token")
		return
	}
	if err := h.Login.SignOut(requestContext(c), req.AccessToken); err != nil {
		logger.Endpoint(c, "signout").Error("global sign-out failed", "error", err)
		abortError(c, http.StatusInternalServerError, "Sign-out failed")
		return
	}
	writeOK(c)
}
