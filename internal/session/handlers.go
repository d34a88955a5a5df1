package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/datapulse/webclient/internal/backend"
)

// AuthClient is what the handlers need from the backend client beyond the
// tracker's own session checks.
type AuthClient interface {
	Login(ctx context.Context, email, password string) (*backend.SessionInfo, error)
	Logout(ctx context.Context, token string) error
}

type Handlers struct {
	client  AuthClient
	tracker *Tracker
}

func NewHandlers(client AuthClient, tracker *Tracker) *Handlers {
	return &Handlers{client: client, tracker: tracker}
}

type sessionResponse struct {
	State         State  `json:"state"`
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
	IsPremium     bool   `json:"is_premium"`
}

// HandleSession handles GET /v1/session. A tracker still in checking state
// is resolved against the backend first.
func (h *Handlers) HandleSession(w http.ResponseWriter, r *http.Request) {
	if h.tracker.State() == StateChecking {
		h.tracker.Check(r.Context())
	}

	state, userID, sessionID, premium := h.tracker.Snapshot()
	writeJSON(w, http.StatusOK, sessionResponse{
		State:         state,
		Authenticated: state == StateAuthenticated,
		UserID:        userID,
		SessionID:     sessionID,
		IsPremium:     premium,
	})
}

// HandleLogin handles POST /v1/auth/login.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req backend.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	info, err := h.client.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
			return
		}
		writeError(w, http.StatusBadGateway, "backend_error", "Login failed, check network and try again")
		return
	}

	if info.Token != "" {
		h.tracker.SetToken(info.Token)
	}
	// Re-check so the tracker mirrors the fresh cookie-backed session.
	h.tracker.Check(r.Context())

	state, userID, sessionID, premium := h.tracker.Snapshot()
	writeJSON(w, http.StatusOK, sessionResponse{
		State:         state,
		Authenticated: state == StateAuthenticated,
		UserID:        userID,
		SessionID:     sessionID,
		IsPremium:     premium,
	})
}

// HandleLogout handles POST /v1/auth/logout. Local state is cleared even
// when the backend call fails; the cache must never outlive a logout.
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token := h.tracker.Token()
	if err := h.client.Logout(r.Context(), token); err != nil {
		log.Printf("WARNING: backend logout failed: %v", err)
	}
	h.tracker.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

// HandleToken handles POST /v1/auth/token: installs a bearer token obtained
// out of band by a federated (OAuth) login redirect.
func (h *Handlers) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}

	h.tracker.SetToken(req.Token)
	writeJSON(w, http.StatusOK, sessionResponse{
		State:         StateAuthenticated,
		Authenticated: true,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
