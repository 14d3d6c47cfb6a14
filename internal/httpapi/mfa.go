package httpapi

import (
	"errors"
	"net/http"

	"insights-dashboard/internal/auth"
	"insights-dashboard/internal/mfa"
	"insights-dashboard/pkg/logger"

	"github.com/gin-gonic/gin"
)

type mfaVerifyRequest struct {
	AccessToken string `json:"accessToken"`
	Code        string `json:"code"`
}

func (h Handlers) MFASetup(c *gin.Context) {
	var req accessTokenRequest
	_ = c.ShouldBindJSON(&req)

	secret, err := h.MFA.InitiateSetup(requestContext(c), req.AccessToken)
	if err != nil {
		h.mfaError(c, "mfa_setup", "Failed to set up MFA", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"secretCode": secret})
}

func (h Handlers) MFAVerify(c *gin.Context) {
	var req mfaVerifyRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.MFA.VerifyAndEnable(requestContext(c), req.AccessToken, req.Code); err != nil {
		h.mfaError(c, "mfa_verify", "Failed to verify MFA code", err)
		return
	}
	writeOK(c)
}

func (h Handlers) MFAStatus(c *gin.Context) {
	var req accessTokenRequest
	_ = c.ShouldBindJSON(&req)

	enabled, err := h.MFA.Status(requestContext(c), req.AccessToken)
	if err != nil {
		h.mfaError(c, "mfa_status", "Failed to get MFA status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": enabled})
}

func (h Handlers) MFADisable(c *gin.Context) {
	var req accessTokenRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.MFA.Disable(requestContext(c), req.AccessToken); err != nil {
		h.mfaError(c, "mfa_disable", "Failed to disable MFA", err)
		return
	}
	writeOK(c)
}

// mfaError maps the error taxonomy to a status and a generic message.
func (h Handlers) mfaError(c *gin.Context, endpoint, generic string, err error) {
	log := logger.Endpoint(c, endpoint)
	switch {
	case errors.Is(err, auth.ErrMissingParameter):
		abortError(c, http.StatusBadRequest, "Missing required parameters")
	case errors.Is(err, auth.ErrInvalidCode):
		abortError(c, http.StatusBadRequest, "Invalid code")
	case errors.Is(err, mfa.ErrRateLimited):
		log.Warn("mfa verify attempts exhausted")
		abortError(c, http.StatusTooManyRequests, "Too many attempts")
	case errors.Is(err, mfa.ErrVerifiedNotEnabled):
		log.Error("mfa verified but not enabled", "error", err)
		abortError(c, http.StatusInternalServerError, generic)
	default:
		log.Error("identity provider call failed", "error", err)
		abortError(c, http.StatusInternalServerError, generic)
	}
}
