// Package tokenstore holds the ID and access tokens of the current session
// in process memory. Tokens are never written to disk.
package tokenstore

import "sync"

// Store is written by the session refresh flow and read by outbound
// authenticated requests. Writes overwrite both tokens unconditionally.
type Store struct {
	mu          sync.RWMutex
	idToken     string
	accessToken string
}

func New() *Store { return &Store{} }

// Set replaces both tokens. An empty string clears that token.
func (s *Store) Set(idToken, accessToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idToken = idToken
	s.accessToken = accessToken
}

func (s *Store) Clear() { s.Set("", "") }

func (s *Store) IDToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idToken, s.idToken != ""
}

func (s *Store) AccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken, s.accessToken != ""
}
