package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenStore caches the bearer token issued for federated logins. It is the
// localStorage analogue: a convenience cache only, never authoritative, and
// cleared on logout or any 401. With an empty path the token lives in
// memory for the process lifetime.
type TokenStore struct {
	mu    sync.Mutex
	path  string
	token string
}

func NewTokenStore(path string) *TokenStore {
	s := &TokenStore{path: path}
	if path != "" {
		s.token = s.readFile()
	}
	return s
}

type tokenFile struct {
	Token string `json:"token"`
}

func (s *TokenStore) readFile() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}
	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return ""
	}
	return tf.Token
}

// Token returns the cached token, discarding it when it is a JWT whose exp
// already passed. Opaque tokens pass through untouched; the backend is the
// only authority on their validity.
func (s *TokenStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && tokenExpired(s.token) {
		s.clearLocked()
	}
	return s.token
}

func (s *TokenStore) Save(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	if s.path == "" || token == "" {
		return
	}

	data, err := json.Marshal(tokenFile{Token: token})
	if err != nil {
		return
	}
	_ = os.MkdirAll(filepath.Dir(s.path), 0o700)
	_ = os.WriteFile(s.path, data, 0o600)
}

func (s *TokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *TokenStore) clearLocked() {
	s.token = ""
	if s.path != "" {
		_ = os.Remove(s.path)
	}
}

// tokenExpired reads the exp claim without verifying the signature; the
// token is opaque to this client and signature verification is the
// backend's job. A token that does not parse as a JWT is not considered
// expired.
func tokenExpired(token string) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
