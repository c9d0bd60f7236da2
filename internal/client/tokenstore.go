package client

import (
	"os"
	"path/filepath"
	"strings"
)

// TokenStore is the single durable slot holding the session token, one
// string in a file. It performs no validation; expired or garbage tokens
// are the session manager's problem. Clearing is final: there is no
// server-side session list to recover from.
type TokenStore struct {
	path string
}

func NewTokenStore(path string) *TokenStore { return &TokenStore{path: path} }

// Get returns the stored token, or "" when no token is stored or the file
// is unreadable.
func (s *TokenStore) Get() string {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// Set persists the token, creating parent directories as needed. The file
// is private to the user.
func (s *TokenStore) Set(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(token), 0o600)
}

// Clear removes the stored token. A missing file is not an error.
func (s *TokenStore) Clear() {
	_ = os.Remove(s.path)
}
