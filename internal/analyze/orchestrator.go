package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/datapulse/webclient/internal/backend"
	"github.com/datapulse/webclient/internal/upload"
	"github.com/datapulse/webclient/internal/usage"
)

var (
	ErrAlreadyRunning   = errors.New("analyze: a run is already in progress")
	ErrNotAuthenticated = errors.New("analyze: not authenticated")
	ErrSessionExpired   = errors.New("analyze: session expired")
	ErrRunSuperseded    = errors.New("analyze: run superseded by reset")
)

// LimitReachedError reports a locally known exhausted daily allowance.
type LimitReachedError struct {
	Reason        string
	NextAvailable *time.Time
}

func (e *LimitReachedError) Error() string {
	if e.Reason != "" {
		return "analyze: " + e.Reason
	}
	return "analyze: daily analysis limit reached"
}

// Status tracks where a run is in its lifecycle.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusUploading Status = "uploading"
	StatusAnalyzing Status = "analyzing"
	StatusDone      Status = "done"
)

// BackendClient is the slice of the backend API the orchestrator drives.
type BackendClient interface {
	Analyze(ctx context.Context, filename string, data []byte, idempotencyKey, token string) ([]byte, error)
	AISummary(ctx context.Context, req backend.AISummaryRequest, token string) ([]byte, error)
}

// SessionState is what the orchestrator needs from the session tracker.
type SessionState interface {
	IsAuthenticated() bool
	Token() string
	Invalidate()
}

// UsageGate pre-checks the daily allowance and refreshes it after a run.
type UsageGate interface {
	Allow() (bool, string, *time.Time)
	Refresh(ctx context.Context, token string) usage.Stats
}

const (
	progressStart = 10
	progressStep  = 5
	progressCap   = 92
)

// Orchestrator runs the two-phase analysis exchange: a quick analysis that
// must succeed, then a best-effort AI enrichment. Only one run may be in
// flight at a time; progress is simulated while the backend works, since
// the backend reports nothing until it answers.
type Orchestrator struct {
	backend BackendClient
	session SessionState
	usage   UsageGate

	goal     string
	audience string
	tick     time.Duration

	mu       sync.Mutex
	status   Status
	progress int
	result   *AnalysisResult
	runID    uuid.UUID
}

type Option func(*Orchestrator)

func WithGoal(goal string) Option {
	return func(o *Orchestrator) { o.goal = goal }
}

func WithAudience(audience string) Option {
	return func(o *Orchestrator) { o.audience = audience }
}

// WithProgressTick overrides the simulated-progress interval, mainly so
// tests do not wait on wall-clock ticks.
func WithProgressTick(d time.Duration) Option {
	return func(o *Orchestrator) { o.tick = d }
}

func NewOrchestrator(client BackendClient, session SessionState, gate UsageGate, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend:  client,
		session:  session,
		usage:    gate,
		goal:     "improve profitability",
		audience: "executive",
		tick:     200 * time.Millisecond,
		status:   StatusIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run performs both phases for one upload candidate and returns the
// normalized result. It blocks until the run finishes or fails.
func (o *Orchestrator) Run(ctx context.Context, cand *upload.Candidate) (*AnalysisResult, error) {
	runID, err := o.begin()
	if err != nil {
		return nil, err
	}

	stop := make(chan struct{})
	go o.simulateProgress(runID, stop)
	defer close(stop)

	token := o.session.Token()
	key := cand.ContentKey()

	payload, err := o.backend.Analyze(ctx, cand.Name, cand.Data, key, token)
	if err != nil {
		o.reset(runID)
		switch {
		case errors.Is(err, backend.ErrUnauthorized):
			o.session.Invalidate()
			return nil, ErrSessionExpired
		default:
			var quota *backend.QuotaError
			if errors.As(err, &quota) {
				return nil, err
			}
			log.Printf("WARNING: quick analysis failed: %v", err)
			return nil, fmt.Errorf("quick analysis: %w", err)
		}
	}

	var quick struct {
		AnalysisResult
		ContentHash string `json:"content_hash"`
	}
	if err := json.Unmarshal(payload, &quick); err != nil {
		o.reset(runID)
		return nil, fmt.Errorf("decode quick analysis: %w", err)
	}

	result := quick.AnalysisResult
	ensureListsNonNil(result.DetailedSummary)

	o.setStatus(runID, StatusAnalyzing)

	// Phase 2 is best effort. The backend identifies the upload by its
	// server-side id when it assigned one, otherwise by the content hash.
	handle := result.UploadID
	if handle == "" {
		handle = quick.ContentHash
	}
	if handle != "" {
		if ds := o.enrich(ctx, handle, token); ds != nil {
			result.DetailedSummary = ds
		}
	}

	if !o.complete(runID, &result) {
		// A reset raced the run; the caller that reset wins.
		return nil, ErrRunSuperseded
	}

	o.usage.Refresh(ctx, token)
	return &result, nil
}

// begin takes the run slot, checking preconditions in order: re-entrancy,
// authentication, then the local usage gate.
func (o *Orchestrator) begin() (uuid.UUID, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.status == StatusUploading || o.status == StatusAnalyzing {
		return uuid.Nil, ErrAlreadyRunning
	}
	if !o.session.IsAuthenticated() {
		return uuid.Nil, ErrNotAuthenticated
	}
	if ok, reason, next := o.usage.Allow(); !ok {
		return uuid.Nil, &LimitReachedError{Reason: reason, NextAvailable: next}
	}

	o.runID = uuid.New()
	o.status = StatusUploading
	o.progress = progressStart
	o.result = nil
	return o.runID, nil
}

func (o *Orchestrator) enrich(ctx context.Context, handle, token string) *DetailedSummary {
	payload, err := o.backend.AISummary(ctx, backend.AISummaryRequest{
		UploadID:     handle,
		BusinessGoal: o.goal,
		Audience:     o.audience,
	}, token)
	if err != nil {
		// An expired session mid-run still invalidates local auth state,
		// but the quick-analysis result survives.
		if errors.Is(err, backend.ErrUnauthorized) {
			o.session.Invalidate()
		}
		log.Printf("WARNING: ai enrichment failed: %v", err)
		return nil
	}
	return NormalizeDetailedSummary(payload)
}

// simulateProgress advances the bar while the backend works: starting at
// progressStart and stepping up each tick until the cap, where it parks
// until completion snaps it to 100.
func (o *Orchestrator) simulateProgress(runID uuid.UUID, stop <-chan struct{}) {
	ticker := time.NewTicker(o.tick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			o.mu.Lock()
			if o.runID == runID && o.progress < progressCap {
				o.progress += progressStep
				if o.progress > progressCap {
					o.progress = progressCap
				}
			}
			stale := o.runID != runID
			o.mu.Unlock()
			if stale {
				return
			}
		}
	}
}

func (o *Orchestrator) setStatus(runID uuid.UUID, status Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runID != runID {
		return
	}
	o.status = status
}

// complete publishes the result. It reports false when the run is no
// longer current, in which case the result is discarded.
func (o *Orchestrator) complete(runID uuid.UUID, result *AnalysisResult) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runID != runID {
		return false
	}
	o.result = result
	o.progress = 100
	o.status = StatusDone
	return true
}

// reset returns the orchestrator to idle if runID is still current.
func (o *Orchestrator) reset(runID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if runID != uuid.Nil && o.runID != runID {
		return
	}
	o.status = StatusIdle
	o.progress = 0
	o.result = nil
	o.runID = uuid.Nil
}

// Reset discards any finished result and aborts the currency of an
// in-flight run so its late responses are dropped.
func (o *Orchestrator) Reset() {
	o.reset(uuid.Nil)
}

func (o *Orchestrator) Snapshot() (Status, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status, o.progress
}

func (o *Orchestrator) Result() *AnalysisResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}
