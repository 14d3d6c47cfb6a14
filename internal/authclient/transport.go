package authclient

import (
	"net/http"

	"insights-dashboard/internal/tokenstore"
)

// BearerTransport sends the current ID token as a bearer credential. With no
// token in the store the request goes out unchanged.
type BearerTransport struct {
	Tokens *tokenstore.Store
	Base   http.RoundTripper
}

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	tok, ok := t.Tokens.IDToken()
	if !ok {
		return base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+tok)
	return base.RoundTrip(r)
}
