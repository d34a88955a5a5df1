package export

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/datapulse/webclient/internal/analyze"
)

// ResultSource hands the handlers the current analysis result.
type ResultSource interface {
	Result() *analyze.AnalysisResult
}

type Handlers struct {
	service *Service
	results ResultSource
}

func NewHandlers(service *Service, results ResultSource) *Handlers {
	return &Handlers{service: service, results: results}
}

// HandleCreate handles POST /v1/reports: renders the current result into
// a stored PDF report.
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	result := h.results.Result()
	if result == nil {
		writeError(w, http.StatusConflict, "no_result", "Run an analysis before exporting a report")
		return
	}

	report, err := h.service.CreateReport(r.Context(), result)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export_failed", "Could not generate the report")
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// HandleList handles GET /v1/reports.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"reports": h.service.ListReports(),
	})
}

// HandleDownload handles GET /v1/reports/{id}/download. S3-backed reports
// redirect to a presigned URL; local reports stream directly.
func (h *Handlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	dl, err := h.service.DownloadReport(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrReportNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Report not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "download_failed", "Could not fetch the report")
		return
	}

	if dl.URL != "" {
		http.Redirect(w, r, dl.URL, http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+dl.FileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Data)))
	w.Write(dl.Data)
}

// HandleDelete handles DELETE /v1/reports/{id}.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.service.DeleteReport(r.Context(), id); err != nil {
		if errors.Is(err, ErrReportNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Report not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "delete_failed", "Could not delete the report")
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
