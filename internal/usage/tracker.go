package usage

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/datapulse/webclient/internal/backend"
)

// UsageClient fetches usage counters from the backend.
type UsageClient interface {
	Usage(ctx context.Context, token string) (*backend.UsageStats, error)
}

// Stats is the local view of the caller's daily analysis allowance.
type Stats struct {
	TodayUsed     int        `json:"today_used"`
	DailyLimit    int        `json:"daily_limit"`
	CanGenerate   bool       `json:"can_generate"`
	IsPremium     bool       `json:"is_premium"`
	NextAvailable *time.Time `json:"next_available,omitempty"`
	Reason        string     `json:"reason,omitempty"`
}

// Tracker caches the last known usage stats. The counters are advisory:
// when the backend cannot be reached the tracker stays permissive and the
// backend's own 402 response remains the authoritative gate.
type Tracker struct {
	mu     sync.Mutex
	client UsageClient
	stats  Stats
	loaded bool
}

func NewTracker(client UsageClient) *Tracker {
	return &Tracker{
		client: client,
		stats:  Stats{CanGenerate: true},
	}
}

// Refresh fetches fresh counters from the backend. A failed fetch never
// blocks the user; the previous stats are kept with CanGenerate forced on.
func (t *Tracker) Refresh(ctx context.Context, token string) Stats {
	remote, err := t.client.Usage(ctx, token)
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		log.Printf("WARNING: usage refresh failed: %v", err)
		t.stats.CanGenerate = true
		t.stats.Reason = ""
		t.stats.NextAvailable = nil
		return t.stats
	}

	t.stats = Stats{
		TodayUsed:   remote.TodayUsed,
		DailyLimit:  remote.DailyLimit,
		CanGenerate: remote.CanGenerate,
		IsPremium:   remote.IsPremium,
		Reason:      remote.Reason,
	}
	if remote.NextAvailable != nil {
		if ts, perr := time.Parse(time.RFC3339, *remote.NextAvailable); perr == nil {
			t.stats.NextAvailable = &ts
		}
	}
	t.loaded = true
	return t.stats
}

// Snapshot returns the last known stats without touching the backend.
func (t *Tracker) Snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// Allow reports whether an analysis may start under the cached counters.
// Counters that were never loaded allow everything through.
func (t *Tracker) Allow() (bool, string, *time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loaded || t.stats.CanGenerate {
		return true, "", nil
	}
	reason := t.stats.Reason
	if reason == "" {
		reason = "Daily analysis limit reached"
	}
	return false, reason, t.stats.NextAvailable
}
