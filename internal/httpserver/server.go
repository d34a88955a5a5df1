package httpserver

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/datapulse/webclient/internal/analyze"
	"github.com/datapulse/webclient/internal/backend"
	"github.com/datapulse/webclient/internal/blob"
	"github.com/datapulse/webclient/internal/config"
	"github.com/datapulse/webclient/internal/export"
	"github.com/datapulse/webclient/internal/session"
	"github.com/datapulse/webclient/internal/usage"
)

// Server is the local HTTP surface the analysis page talks to.
type Server struct {
	config *config.Config
	mux    *http.ServeMux
}

func New(cfg *config.Config) (*Server, error) {
	s := &Server{
		config: cfg,
		mux:    http.NewServeMux(),
	}
	if err := s.routes(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) routes() error {
	cfg := s.config

	// Health check
	s.mux.HandleFunc("/healthz", s.handleHealthz)

	client := backend.NewClient(cfg)

	// Session API
	tokenStore := session.NewTokenStore(cfg.TokenCachePath)
	tracker := session.NewTracker(client, tokenStore)
	sessionHandler := session.NewHandlers(client, tracker)

	// GET /v1/session - current auth state
	s.mux.HandleFunc("GET /v1/session", sessionHandler.HandleSession)

	// POST /v1/auth/login - email/password login via the backend
	s.mux.HandleFunc("POST /v1/auth/login", sessionHandler.HandleLogin)

	// POST /v1/auth/logout - backend logout + local invalidation
	s.mux.HandleFunc("POST /v1/auth/logout", sessionHandler.HandleLogout)

	// POST /v1/auth/token - install a federated login token
	s.mux.HandleFunc("POST /v1/auth/token", sessionHandler.HandleToken)

	// Usage API
	usageTracker := usage.NewTracker(client)
	usageHandler := usage.NewHandlers(usageTracker, tracker)

	// GET /v1/usage - daily allowance counters
	s.mux.HandleFunc("GET /v1/usage", usageHandler.HandleUsage)

	// Analyze API
	orch := analyze.NewOrchestrator(client, tracker, usageTracker,
		analyze.WithGoal(cfg.BusinessGoal),
		analyze.WithAudience(cfg.Audience),
	)
	analyzeHandler := analyze.NewHandlers(orch, cfg.UploadMaxMB)

	// POST /v1/analyze - upload a spreadsheet and run both phases
	s.mux.HandleFunc("POST /v1/analyze", analyzeHandler.HandleAnalyze)

	// GET /v1/analyze/status - lifecycle state and simulated progress
	s.mux.HandleFunc("GET /v1/analyze/status", analyzeHandler.HandleStatus)

	// GET /v1/result - the normalized result of the last run
	s.mux.HandleFunc("GET /v1/result", analyzeHandler.HandleResult)

	// POST /v1/reset - discard the current run or result
	s.mux.HandleFunc("POST /v1/reset", analyzeHandler.HandleReset)

	// Reports API
	store, mode, err := blob.NewBlobStore(cfg.Blob, cfg.ReportsDir, log.Default())
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}
	exportService := export.NewService(store, mode, cfg.Blob.S3.PresignTTLSeconds)
	exportHandler := export.NewHandlers(exportService, orch)

	// POST /v1/reports - export the current result as a PDF
	s.mux.HandleFunc("POST /v1/reports", exportHandler.HandleCreate)

	// GET /v1/reports - list generated reports
	s.mux.HandleFunc("GET /v1/reports", exportHandler.HandleList)

	// GET /v1/reports/{id}/download - presigned URL or direct stream
	s.mux.HandleFunc("GET /v1/reports/{id}/download", exportHandler.HandleDownload)

	// DELETE /v1/reports/{id} - remove a report
	s.mux.HandleFunc("DELETE /v1/reports/{id}", exportHandler.HandleDelete)

	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	handler = RateLimitMiddleware(s.config, handler)
	handler = CORSMiddleware(s.config, handler)
	return handler
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	log.Printf("INFO server: listening on http://localhost%s", addr)
	log.Printf("INFO server: health check http://localhost%s/healthz", addr)
	log.Printf("INFO server: analyze API http://localhost%s/v1/analyze", addr)

	return http.ListenAndServe(addr, s.Handler())
}
