package analyze

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/datapulse/webclient/internal/backend"
	"github.com/datapulse/webclient/internal/upload"
)

type Handlers struct {
	orch      *Orchestrator
	maxUpload int64
}

// NewHandlers wires the HTTP surface for analysis runs. maxUploadMB bounds
// the multipart body size.
func NewHandlers(orch *Orchestrator, maxUploadMB int) *Handlers {
	return &Handlers{
		orch:      orch,
		maxUpload: int64(maxUploadMB) << 20,
	}
}

// HandleAnalyze handles POST /v1/analyze: accepts a multipart upload,
// runs both phases and returns the normalized result.
func (h *Handlers) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "file_too_large",
			fmt.Sprintf("Upload exceeds the %d MB limit", h.maxUpload>>20))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "multipart field 'file' is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "could not read uploaded file")
		return
	}

	cand := upload.NewCandidate(header.Filename, header.Header.Get("Content-Type"), data)
	if err := cand.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "unsupported_file",
			"Please choose an Excel or CSV file.")
		return
	}

	result, err := h.orch.Run(r.Context(), &cand)
	if err != nil {
		h.writeRunError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) writeRunError(w http.ResponseWriter, err error) {
	var quota *backend.QuotaError
	var limit *LimitReachedError
	switch {
	case errors.Is(err, ErrAlreadyRunning):
		writeError(w, http.StatusConflict, "already_running", "An analysis is already in progress")
	case errors.Is(err, ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "auth_required", "Please log in first to generate a report.")
	case errors.Is(err, ErrSessionExpired):
		writeError(w, http.StatusUnauthorized, "session_expired", "Your session expired, please log in again.")
	case errors.As(err, &quota):
		writeQuota(w, quota.CheckoutURL, "")
	case errors.As(err, &limit):
		next := ""
		if limit.NextAvailable != nil {
			next = limit.NextAvailable.Format(time.RFC3339)
		}
		writeQuota(w, "", next)
	case errors.Is(err, ErrRunSuperseded):
		writeError(w, http.StatusConflict, "run_superseded", "The analysis was reset before it finished")
	default:
		writeError(w, http.StatusBadGateway, "analyze_failed", "Analyze failed, check the file and try again")
	}
}

// HandleStatus handles GET /v1/analyze/status.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status, progress := h.orch.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"state":    status,
		"progress": progress,
	})
}

// HandleResult handles GET /v1/result.
func (h *Handlers) HandleResult(w http.ResponseWriter, r *http.Request) {
	result := h.orch.Result()
	if result == nil {
		writeError(w, http.StatusNotFound, "no_result", "No analysis result available")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleReset handles POST /v1/reset.
func (h *Handlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.orch.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func writeQuota(w http.ResponseWriter, checkoutURL, nextAvailable string) {
	body := map[string]any{
		"error": map[string]string{
			"code":    "limit_reached",
			"message": "Daily analysis limit reached. Upgrade for unlimited analyses.",
		},
	}
	if checkoutURL != "" {
		body["checkout_url"] = checkoutURL
	}
	if nextAvailable != "" {
		body["next_available"] = nextAvailable
	}
	writeJSON(w, http.StatusPaymentRequired, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
