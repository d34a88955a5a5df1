package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestTokenStore_MemoryOnly(t *testing.T) {
	store := NewTokenStore("")

	if store.Token() != "" {
		t.Error("fresh store must be empty")
	}

	store.Save("tok")
	if store.Token() != "tok" {
		t.Errorf("token = %q, want tok", store.Token())
	}

	store.Clear()
	if store.Token() != "" {
		t.Error("Clear must drop the token")
	}
}

func TestTokenStore_FilePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "token.json")

	store := NewTokenStore(path)
	store.Save("persisted")

	reopened := NewTokenStore(path)
	if reopened.Token() != "persisted" {
		t.Errorf("reopened token = %q, want persisted", reopened.Token())
	}

	reopened.Clear()
	if NewTokenStore(path).Token() != "" {
		t.Error("Clear must remove the cache file")
	}
}

func TestTokenStore_ExpiredJWTDiscarded(t *testing.T) {
	store := NewTokenStore("")
	store.Save(signedJWT(t, time.Now().Add(-time.Hour)))

	if store.Token() != "" {
		t.Error("expired JWT must be discarded on read")
	}
}

func TestTokenStore_ValidJWTKept(t *testing.T) {
	store := NewTokenStore("")
	tok := signedJWT(t, time.Now().Add(time.Hour))
	store.Save(tok)

	if store.Token() != tok {
		t.Error("unexpired JWT must be kept")
	}
}

func TestTokenStore_OpaqueTokenNeverExpires(t *testing.T) {
	store := NewTokenStore("")
	store.Save("not-a-jwt")

	if store.Token() != "not-a-jwt" {
		t.Error("opaque tokens are the backend's problem, not ours")
	}
}
