package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
)

// cookieScope is the absolute URL the refresh cookie is scoped to. The path
// always starts with a slash so it matches the cookie's Path attribute, even
// for a host-only base URL.
func cookieScope(base *url.URL) *url.URL {
	return &url.URL{
		Scheme: base.Scheme,
		Host:   base.Host,
		Path:   path.Join("/", base.Path, "api/auth"),
	}
}

// storedCookie is the on-disk form of one cookie.
type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// fileJar is an http.CookieJar that persists the cookies visible under scope
// to a 0600 file after every change.
type fileJar struct {
	path  string
	scope *url.URL
	log   *slog.Logger

	mu    sync.Mutex
	inner *cookiejar.Jar
}

var _ http.CookieJar = (*fileJar)(nil)

func openJar(path string, scope *url.URL, log *slog.Logger) (*fileJar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	j := &fileJar{path: path, scope: scope, log: log, inner: inner}

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return j, nil
	case err != nil:
		return nil, fmt.Errorf("read cookie jar: %w", err)
	}

	var stored []storedCookie
	if err := json.Unmarshal(b, &stored); err != nil {
		return nil, fmt.Errorf("parse cookie jar %s: %w", path, err)
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: scope.Path})
	}
	inner.SetCookies(scope, cookies)
	return j, nil
}

func (j *fileJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.inner.SetCookies(u, cookies)
	if err := j.save(); err != nil {
		j.log.Warn("cookie jar not saved", "path", j.path, "error", err)
	}
}

func (j *fileJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inner.Cookies(u)
}

// save writes the jar atomically. Callers hold j.mu.
func (j *fileJar) save() error {
	cookies := j.inner.Cookies(j.scope)
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value})
	}
	b, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(j.path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(j.path), ".cookies-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), j.path)
}
