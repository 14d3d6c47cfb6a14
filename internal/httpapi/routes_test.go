package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"insights-dashboard/internal/idp/idpfake"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func TestProtectedRoutes_ScopeByRoleAndTenant(t *testing.T) {
	p, err := idpfake.New(idpfake.Options{
		Secret:     "s",
		BcryptCost: bcrypt.MinCost,
		Users: []idpfake.User{
			{Email: "o@example.com", Password: "pw", Role: "owner"},
			{Email: "c@example.com", Password: "pw", Role: "client", ClientID: "t1"},
		},
	})
	if err != nil {
		t.Fatalf("new fake: %v", err)
	}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterProtectedRoutes(r, p.Verifier())

	idToken := func(email string) string {
		tok, err := p.SignIn(context.Background(), email, "pw")
		if err != nil {
			t.Fatalf("sign in %s: %v", email, err)
		}
		return tok.IDToken
	}
	owner, client := idToken("o@example.com"), idToken("c@example.com")

	get := func(path, bearer string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	cases := []struct {
		path   string
		bearer string
		want   int
	}{
		{"/api/me", "", http.StatusUnauthorized},
		{"/api/me", "not.a.jwt", http.StatusUnauthorized},
		{"/api/me", client, http.StatusOK},
		{"/api/admin/ping", owner, http.StatusOK},
		{"/api/admin/ping", client, http.StatusForbidden},
		{"/api/clients/t1/ping", client, http.StatusOK},
		{"/api/clients/t2/ping", client, http.StatusForbidden},
		{"/api/clients/t2/ping", owner, http.StatusOK},
	}
	for _, tc := range cases {
		if got := get(tc.path, tc.bearer); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.path, tc.want, got)
		}
	}
}
