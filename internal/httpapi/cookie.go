package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CookiePolicy describes the refresh-token cookie. It is HttpOnly and
// SameSite=Strict unconditionally.
type CookiePolicy struct {
	Name   string
	Path   string
	MaxAge time.Duration
	Secure bool
}

func (p CookiePolicy) set(c *gin.Context, refreshToken string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(p.Name, refreshToken, int(p.MaxAge/time.Second), p.Path, "", p.Secure, true)
}

// clear expires the cookie. Writing the same expired cookie twice leaves the
// same end state.
func (p CookiePolicy) clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(p.Name, "", -1, p.Path, "", p.Secure, true)
}

func (p CookiePolicy) read(c *gin.Context) string {
	v, err := c.Cookie(p.Name)
	if err != nil {
		return ""
	}
	return v
}
