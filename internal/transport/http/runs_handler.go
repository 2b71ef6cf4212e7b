package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
	"github.com/Simon3728/Data-Analysis-Election/internal/exporter"
	"github.com/Simon3728/Data-Analysis-Election/internal/infrastructure"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// RunReader reads stored run reports.
type RunReader interface {
	ListRuns() ([]domain.RunSummary, error)
	ReadRunReport(runID string) (*domain.RunReport, error)
	ReadVerification(runID string) (*domain.VerificationReport, error)
}

// RunsHandler serves finished analysis runs
type RunsHandler struct {
	reports RunReader
	logger  *slog.Logger
}

// NewRunsHandler creates a new runs handler
func NewRunsHandler(reports RunReader, logger *slog.Logger) *RunsHandler {
	return &RunsHandler{
		reports: reports,
		logger:  logger.With(slog.String("handler", "runs")),
	}
}

// Routes mounts the run endpoints
func (h *RunsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Get("/summary", h.Summary)
		r.Get("/verification", h.Verification)
	})
	return r
}

// RunList is the response of GET /api/v1/runs
type RunList struct {
	Runs  []domain.RunSummary `json:"runs"`
	Count int                 `json:"count"`
}

// List handles GET /api/v1/runs
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	runs, err := h.reports.ListRuns()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if runs == nil {
		runs = []domain.RunSummary{}
	}
	render.JSON(w, r, RunList{Runs: runs, Count: len(runs)})
}

// Get handles GET /api/v1/runs/{id}
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.runID(w, r)
	if !ok {
		return
	}
	report, err := h.reports.ReadRunReport(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

// Summary handles GET /api/v1/runs/{id}/summary as plain text
func (h *RunsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id, ok := h.runID(w, r)
	if !ok {
		return
	}
	report, err := h.reports.ReadRunReport(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := exporter.WriteSummary(w, report); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write summary", slog.String("error", err.Error()))
	}
}

// Verification handles GET /api/v1/runs/{id}/verification
func (h *RunsHandler) Verification(w http.ResponseWriter, r *http.Request) {
	id, ok := h.runID(w, r)
	if !ok {
		return
	}
	report, err := h.reports.ReadVerification(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

func (h *RunsHandler) runID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if !infrastructure.IsRunID(id) {
		apperrors.WriteError(w, apperrors.NewWithDetails(http.StatusBadRequest, "INVALID_PARAMETER", "run id must be a UUID", id))
		return "", false
	}
	return id, true
}

func (h *RunsHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apperrors.FromError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
	apperrors.WriteError(w, apiErr)
}
