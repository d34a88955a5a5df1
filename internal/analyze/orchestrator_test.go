package analyze

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/datapulse/webclient/internal/backend"
	"github.com/datapulse/webclient/internal/upload"
	"github.com/datapulse/webclient/internal/usage"
)

// Mock implementations

type fakeBackend struct {
	mu           sync.Mutex
	analyzeResp  []byte
	analyzeErr   error
	analyzeCalls int
	analyzeGate  chan struct{} // when set, Analyze blocks until closed
	lastKey      string

	summaryResp  []byte
	summaryErr   error
	summaryCalls int
	lastHandle   string
}

func (f *fakeBackend) Analyze(ctx context.Context, filename string, data []byte, idempotencyKey, token string) ([]byte, error) {
	f.mu.Lock()
	f.analyzeCalls++
	f.lastKey = idempotencyKey
	gate := f.analyzeGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return f.analyzeResp, f.analyzeErr
}

func (f *fakeBackend) AISummary(ctx context.Context, req backend.AISummaryRequest, token string) ([]byte, error) {
	f.mu.Lock()
	f.summaryCalls++
	f.lastHandle = req.UploadID
	f.mu.Unlock()
	return f.summaryResp, f.summaryErr
}

type fakeSession struct {
	mu            sync.Mutex
	authenticated bool
	token         string
	invalidated   bool
}

func (f *fakeSession) IsAuthenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authenticated
}

func (f *fakeSession) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeSession) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = true
	f.authenticated = false
}

type fakeGate struct {
	mu           sync.Mutex
	allow        bool
	reason       string
	next         *time.Time
	refreshCalls int
}

func (f *fakeGate) Allow() (bool, string, *time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allow, f.reason, f.next
}

func (f *fakeGate) Refresh(ctx context.Context, token string) usage.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	return usage.Stats{CanGenerate: f.allow}
}

var quickPayload = []byte(`{
	"upload_id": "u1",
	"profiling": {"rows": 120, "columns": 6, "missing_total": 2},
	"kpis": {"total_rows": 120, "total_columns": 6, "missing_pct": 0.4, "duplicate_rows": 0, "outliers_total": 3, "rows_per_day": null},
	"charts": {"line": [], "bar": [], "pie": []},
	"insights": {"summary": "120 rows across 6 columns."}
}`)

func testCandidate() *upload.Candidate {
	cand := upload.NewCandidate("sales.csv", "text/csv", []byte("region,revenue\nnorth,10\n"))
	return &cand
}

func newTestOrchestrator(b *fakeBackend, s *fakeSession, g *fakeGate) *Orchestrator {
	return NewOrchestrator(b, s, g, WithProgressTick(5*time.Millisecond))
}

func TestRun_EndToEnd(t *testing.T) {
	b := &fakeBackend{
		analyzeResp: quickPayload,
		summaryResp: []byte(`{"executive_overview": "Revenue grew.", "key_trends": ["up"], "action_items_quick_wins": []}`),
	}
	s := &fakeSession{authenticated: true, token: "tok"}
	g := &fakeGate{allow: true}
	orch := newTestOrchestrator(b, s, g)

	result, err := orch.Run(context.Background(), testCandidate())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Profiling.Rows != 120 {
		t.Errorf("rows = %d, want 120", result.Profiling.Rows)
	}
	if result.DetailedSummary == nil || result.DetailedSummary.ExecutiveOverview != "Revenue grew." {
		t.Errorf("detailed summary = %+v", result.DetailedSummary)
	}

	status, progress := orch.Snapshot()
	if status != StatusDone || progress != 100 {
		t.Errorf("snapshot = %s/%d, want done/100", status, progress)
	}
	if orch.Result() == nil {
		t.Error("result should be retained after the run")
	}
	if b.lastHandle != "u1" {
		t.Errorf("enrichment handle = %q, want u1", b.lastHandle)
	}
	if b.lastKey == "" || b.lastKey != testCandidate().ContentKey() {
		t.Errorf("idempotency key = %q, want content hash", b.lastKey)
	}
	if g.refreshCalls != 1 {
		t.Errorf("usage refresh calls = %d, want 1", g.refreshCalls)
	}
}

func TestRun_RequiresAuthentication(t *testing.T) {
	orch := newTestOrchestrator(&fakeBackend{}, &fakeSession{authenticated: false}, &fakeGate{allow: true})

	_, err := orch.Run(context.Background(), testCandidate())
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}

	if status, _ := orch.Snapshot(); status != StatusIdle {
		t.Errorf("status = %s, want idle", status)
	}
}

func TestRun_LocalLimitGate(t *testing.T) {
	next := time.Now().Add(4 * time.Hour)
	g := &fakeGate{allow: false, reason: "Daily limit reached", next: &next}
	orch := newTestOrchestrator(&fakeBackend{}, &fakeSession{authenticated: true}, g)

	_, err := orch.Run(context.Background(), testCandidate())
	var limit *LimitReachedError
	if !errors.As(err, &limit) {
		t.Fatalf("err = %v, want LimitReachedError", err)
	}
	if limit.Reason != "Daily limit reached" || limit.NextAvailable == nil {
		t.Errorf("limit = %+v", limit)
	}
}

func TestRun_QuotaErrorPropagates(t *testing.T) {
	b := &fakeBackend{analyzeErr: &backend.QuotaError{CheckoutURL: "https://pay.example/checkout"}}
	orch := newTestOrchestrator(b, &fakeSession{authenticated: true}, &fakeGate{allow: true})

	_, err := orch.Run(context.Background(), testCandidate())
	var quota *backend.QuotaError
	if !errors.As(err, &quota) {
		t.Fatalf("err = %v, want QuotaError", err)
	}
	if quota.CheckoutURL != "https://pay.example/checkout" {
		t.Errorf("checkout url = %q", quota.CheckoutURL)
	}

	if status, progress := orch.Snapshot(); status != StatusIdle || progress != 0 {
		t.Errorf("snapshot = %s/%d, want idle/0", status, progress)
	}
}

func TestRun_UnauthorizedInvalidatesSession(t *testing.T) {
	b := &fakeBackend{analyzeErr: backend.ErrUnauthorized}
	s := &fakeSession{authenticated: true, token: "stale"}
	orch := newTestOrchestrator(b, s, &fakeGate{allow: true})

	_, err := orch.Run(context.Background(), testCandidate())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if !s.invalidated {
		t.Error("session must be invalidated on 401")
	}
	if status, _ := orch.Snapshot(); status != StatusIdle {
		t.Errorf("status = %s, want idle", status)
	}
}

func TestRun_EnrichmentFailureKeepsQuickSummary(t *testing.T) {
	withSummary := []byte(`{
		"upload_id": "u1",
		"profiling": {"rows": 10, "columns": 2, "missing_total": 0},
		"kpis": {"total_rows": 10, "total_columns": 2, "missing_pct": 0, "duplicate_rows": 0, "outliers_total": 0, "rows_per_day": null},
		"charts": {"line": [], "bar": [], "pie": []},
		"detailed_summary": {"executive_overview": "Quick overview."}
	}`)
	b := &fakeBackend{
		analyzeResp: withSummary,
		summaryErr:  &backend.StatusError{Status: 500, Body: "boom"},
	}
	orch := newTestOrchestrator(b, &fakeSession{authenticated: true}, &fakeGate{allow: true})

	result, err := orch.Run(context.Background(), testCandidate())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.DetailedSummary == nil || result.DetailedSummary.ExecutiveOverview != "Quick overview." {
		t.Errorf("detailed summary = %+v, want the quick-analysis one", result.DetailedSummary)
	}
	if result.DetailedSummary.KeyTrends == nil {
		t.Error("key_trends must be a non-nil slice after normalization")
	}
}

func TestRun_EnrichmentUnauthorizedKeepsResult(t *testing.T) {
	b := &fakeBackend{
		analyzeResp: quickPayload,
		summaryErr:  backend.ErrUnauthorized,
	}
	s := &fakeSession{authenticated: true}
	orch := newTestOrchestrator(b, s, &fakeGate{allow: true})

	result, err := orch.Run(context.Background(), testCandidate())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result == nil {
		t.Fatal("result must survive an expired session during enrichment")
	}
	if !s.invalidated {
		t.Error("session must still be invalidated on the mid-run 401")
	}
}

func TestRun_ContentHashHandleFallback(t *testing.T) {
	noUploadID := []byte(`{
		"content_hash": "abc123",
		"profiling": {"rows": 1, "columns": 1, "missing_total": 0},
		"kpis": {"total_rows": 1, "total_columns": 1, "missing_pct": 0, "duplicate_rows": 0, "outliers_total": 0, "rows_per_day": null},
		"charts": {"line": [], "bar": [], "pie": []}
	}`)
	b := &fakeBackend{analyzeResp: noUploadID, summaryResp: []byte(`{"summary": "ok"}`)}
	orch := newTestOrchestrator(b, &fakeSession{authenticated: true}, &fakeGate{allow: true})

	if _, err := orch.Run(context.Background(), testCandidate()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if b.lastHandle != "abc123" {
		t.Errorf("enrichment handle = %q, want content_hash fallback", b.lastHandle)
	}
}

func TestRun_NoHandleSkipsEnrichment(t *testing.T) {
	bare := []byte(`{
		"profiling": {"rows": 1, "columns": 1, "missing_total": 0},
		"kpis": {"total_rows": 1, "total_columns": 1, "missing_pct": 0, "duplicate_rows": 0, "outliers_total": 0, "rows_per_day": null},
		"charts": {"line": [], "bar": [], "pie": []}
	}`)
	b := &fakeBackend{analyzeResp: bare}
	orch := newTestOrchestrator(b, &fakeSession{authenticated: true}, &fakeGate{allow: true})

	if _, err := orch.Run(context.Background(), testCandidate()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if b.summaryCalls != 0 {
		t.Errorf("summary calls = %d, want 0 without an upload handle", b.summaryCalls)
	}
}

func TestRun_SecondSubmissionRejectedWhileRunning(t *testing.T) {
	gate := make(chan struct{})
	b := &fakeBackend{analyzeResp: quickPayload, analyzeGate: gate}
	orch := newTestOrchestrator(b, &fakeSession{authenticated: true}, &fakeGate{allow: true})

	done := make(chan error, 1)
	go func() {
		_, err := orch.Run(context.Background(), testCandidate())
		done <- err
	}()

	// Wait until the first run holds the slot.
	deadline := time.After(2 * time.Second)
	for {
		if status, _ := orch.Snapshot(); status == StatusUploading {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first run never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if _, err := orch.Run(context.Background(), testCandidate()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Run err = %v, want ErrAlreadyRunning", err)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first Run: %v", err)
	}

	if b.analyzeCalls != 1 {
		t.Errorf("analyze calls = %d, want exactly one backend exchange", b.analyzeCalls)
	}
}

func TestReset_DropsLateResult(t *testing.T) {
	gate := make(chan struct{})
	b := &fakeBackend{analyzeResp: quickPayload, analyzeGate: gate}
	orch := newTestOrchestrator(b, &fakeSession{authenticated: true}, &fakeGate{allow: true})

	done := make(chan error, 1)
	go func() {
		_, err := orch.Run(context.Background(), testCandidate())
		done <- err
	}()

	deadline := time.After(2 * time.Second)
	for {
		if status, _ := orch.Snapshot(); status == StatusUploading {
			break
		}
		select {
		case <-deadline:
			t.Fatal("run never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	orch.Reset()
	close(gate)

	if err := <-done; !errors.Is(err, ErrRunSuperseded) {
		t.Fatalf("err = %v, want ErrRunSuperseded", err)
	}
	if orch.Result() != nil {
		t.Error("late result must be discarded after a reset")
	}
	if status, progress := orch.Snapshot(); status != StatusIdle || progress != 0 {
		t.Errorf("snapshot = %s/%d, want idle/0", status, progress)
	}
}
