package usage

import (
	"encoding/json"
	"net/http"
)

// TokenSource supplies the current bearer token, if any.
type TokenSource interface {
	Token() string
}

type Handlers struct {
	tracker *Tracker
	tokens  TokenSource
}

func NewHandlers(tracker *Tracker, tokens TokenSource) *Handlers {
	return &Handlers{tracker: tracker, tokens: tokens}
}

// HandleUsage handles GET /v1/usage. Pass refresh=1 to bypass the cache.
func (h *Handlers) HandleUsage(w http.ResponseWriter, r *http.Request) {
	stats := h.tracker.Snapshot()
	if r.URL.Query().Get("refresh") == "1" {
		stats = h.tracker.Refresh(r.Context(), h.tokens.Token())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(stats)
}
