package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type stubDecoder struct {
	claims IDTokenClaims
	err    error
}

func (s stubDecoder) Decode(context.Context, string) (IDTokenClaims, error) {
	return s.claims, s.err
}

func newProtected(d Decoder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RequireIDToken(d), func(c *gin.Context) {
		u, err := UserFrom(c.Request.Context())
		if err != nil {
			c.Status(500)
			return
		}
		c.JSON(200, u)
	})
	return r
}

func TestRequireIDToken_MissingBearer(t *testing.T) {
	r := newProtected(stubDecoder{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireIDToken_DecodeFailure(t *testing.T) {
	r := newProtected(stubDecoder{err: errors.New("bad signature")})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer abc")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireIDToken_InjectsUser(t *testing.T) {
	r := newProtected(stubDecoder{claims: IDTokenClaims{Email: "c@example.com", ClientID: "t1"}})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer abc")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := w.Body.String(); body != `{"email":"c@example.com","role":"client","clientId":"t1","groups":[]}` {
		t.Fatalf("unexpected body: %s", body)
	}
}
