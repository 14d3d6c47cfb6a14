package auth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claim names issued by the identity provider.
const (
	ClaimEmail    = "email"
	ClaimRole     = "custom:role"
	ClaimClientID = "custom:clientId"
	ClaimGroups   = "cognito:groups"
	ClaimTokenUse = "token_use"
)

// IDTokenClaims is the only supported ID token claims shape.
//
// Custom claims are decoded leniently: a missing or mistyped custom claim
// decodes to its zero value instead of failing the whole token, so role
// resolution falls back to the least privileged role.
type IDTokenClaims struct {
	jwt.RegisteredClaims

	Email    string   `json:"email,omitempty"`
	Role     string   `json:"custom:role,omitempty"`
	ClientID string   `json:"custom:clientId,omitempty"`
	Groups   []string `json:"cognito:groups,omitempty"`
	TokenUse string   `json:"token_use,omitempty"`
}

func (c *IDTokenClaims) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var reg jwt.RegisteredClaims
	if err := json.Unmarshal(b, &reg); err != nil {
		return err
	}
	*c = IDTokenClaims{
		RegisteredClaims: reg,
		Email:            stringClaim(raw, ClaimEmail),
		Role:             stringClaim(raw, ClaimRole),
		ClientID:         stringClaim(raw, ClaimClientID),
		Groups:           stringsClaim(raw, ClaimGroups),
		TokenUse:         stringClaim(raw, ClaimTokenUse),
	}
	return nil
}

func stringClaim(raw map[string]json.RawMessage, name string) string {
	v, ok := raw[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}

func stringsClaim(raw map[string]json.RawMessage, name string) []string {
	v, ok := raw[name]
	if !ok {
		return nil
	}
	var list []string
	if err := json.Unmarshal(v, &list); err == nil {
		return list
	}
	// A single group is sometimes serialized as a bare string.
	var s string
	if err := json.Unmarshal(v, &s); err == nil && s != "" {
		return []string{s}
	}
	return nil
}

var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

var toURLAlphabet = strings.NewReplacer("+", "-", "/", "_")

// DecodePayload returns the raw JSON payload of a compact JWS without
// checking its signature. Both base64 alphabets are accepted and padding is
// normalized, so payloads of any length decode.
func DecodePayload(token string) ([]byte, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedToken, len(parts))
	}
	seg := strings.TrimRight(toURLAlphabet.Replace(parts[1]), "=")
	if seg == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedToken)
	}
	b, err := segmentParser.DecodeSegment(seg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return b, nil
}

// ParseClaims decodes the payload of token into IDTokenClaims without
// signature verification.
func ParseClaims(token string) (IDTokenClaims, error) {
	payload, err := DecodePayload(token)
	if err != nil {
		return IDTokenClaims{}, err
	}
	var c IDTokenClaims
	if err := json.Unmarshal(payload, &c); err != nil {
		return IDTokenClaims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return c, nil
}
