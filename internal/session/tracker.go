package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/datapulse/webclient/internal/backend"
)

// State of the authentication tracker.
type State string

const (
	StateChecking        State = "checking"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

// SessionClient is what the tracker needs from the backend client.
type SessionClient interface {
	Session(ctx context.Context) (*backend.SessionInfo, error)
	StartSession(ctx context.Context) error
	HasSessionCookie() bool
}

// Tracker mirrors the backend's session state. The backend is the source of
// truth; the tracker is a reactive cache consulted by every submission entry
// point. Nothing outside this package transitions its state.
type Tracker struct {
	mu         sync.Mutex
	state      State
	userID     string
	sessionID  string
	premium    bool
	client     SessionClient
	store      *TokenStore
	retryDelay time.Duration
}

type TrackerOption func(*Tracker)

// WithRetryDelay overrides the pause before the single retry of an
// unauthenticated session check while a session cookie is present.
func WithRetryDelay(d time.Duration) TrackerOption {
	return func(t *Tracker) { t.retryDelay = d }
}

func NewTracker(client SessionClient, store *TokenStore, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		state:      StateChecking,
		client:     client,
		store:      store,
		retryDelay: 750 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Check resolves checking into authenticated or unauthenticated.
//
// A cached, non-expired token short-circuits to authenticated without a
// round-trip (the federated-login case), with an opportunistic background
// refresh against the backend. Otherwise the backend session endpoint
// decides; if it says unauthenticated while a session cookie is observably
// present, the check is retried once after a short delay, since a federated
// redirect may not have fully propagated session state yet.
func (t *Tracker) Check(ctx context.Context) State {
	if t.store.Token() != "" {
		t.setAuthenticated("", "", false)
		go t.refreshFromBackend(context.Background())
		return StateAuthenticated
	}

	if t.checkOnce(ctx) {
		return StateAuthenticated
	}

	// Best-effort session bootstrap before giving up.
	if err := t.client.StartSession(ctx); err != nil {
		log.Printf("INFO session: session start failed, continuing: %v", err)
	}

	if t.client.HasSessionCookie() {
		select {
		case <-time.After(t.retryDelay):
		case <-ctx.Done():
			t.setUnauthenticated()
			return StateUnauthenticated
		}
		if t.checkOnce(ctx) {
			return StateAuthenticated
		}
	}

	t.setUnauthenticated()
	return StateUnauthenticated
}

func (t *Tracker) checkOnce(ctx context.Context) bool {
	info, err := t.client.Session(ctx)
	if err != nil {
		log.Printf("INFO session: session check failed: %v", err)
		return false
	}
	if !info.Authenticated {
		return false
	}

	if info.Token != "" {
		t.store.Save(info.Token)
	}
	t.setAuthenticated(info.UserID, info.SessionID, info.IsPremium)
	return true
}

func (t *Tracker) refreshFromBackend(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	info, err := t.client.Session(ctx)
	if err != nil {
		// Keep the token-derived state; the next privileged call will
		// surface a 401 if the token is actually dead.
		return
	}
	if info.Authenticated {
		if info.Token != "" {
			t.store.Save(info.Token)
		}
		t.setAuthenticated(info.UserID, info.SessionID, info.IsPremium)
	}
}

// Invalidate reacts to an authentication-expired signal (401) from any
// backend call: cached token cleared, state back to unauthenticated.
func (t *Tracker) Invalidate() {
	t.store.Clear()
	t.setUnauthenticated()
}

// SetToken installs an externally obtained bearer token (federated login
// return path) and marks the session authenticated.
func (t *Tracker) SetToken(token string) {
	t.store.Save(token)
	t.setAuthenticated("", "", false)
}

func (t *Tracker) Token() string {
	return t.store.Token()
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tracker) IsAuthenticated() bool {
	return t.State() == StateAuthenticated
}

// Snapshot returns the mirrored session identity.
func (t *Tracker) Snapshot() (state State, userID, sessionID string, premium bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state, t.userID, t.sessionID, t.premium
}

func (t *Tracker) setAuthenticated(userID, sessionID string, premium bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = StateAuthenticated
	if userID != "" {
		t.userID = userID
	}
	if sessionID != "" {
		t.sessionID = sessionID
	}
	t.premium = premium
}

func (t *Tracker) setUnauthenticated() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = StateUnauthenticated
	t.userID = ""
	t.sessionID = ""
	t.premium = false
}
