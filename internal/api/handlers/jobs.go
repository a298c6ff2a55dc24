package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/dvoloshyn/pocket-money/internal/api/middleware"
	"github.com/dvoloshyn/pocket-money/internal/auth"
	"github.com/dvoloshyn/pocket-money/internal/jobs"
)

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// JobsHandler handles statement export and job status endpoints.
type JobsHandler struct {
	store     jobs.JobStore
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewJobsHandler creates a jobs handler.
func NewJobsHandler(store jobs.JobStore, publisher jobs.Publisher, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, publisher: publisher, log: log}
}

// ExportStatement handles POST /api/archive/export
func (h *JobsHandler) ExportStatement(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req struct {
		Month string `json:"month"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !monthPattern.MatchString(req.Month) {
		middleware.WriteError(w, http.StatusBadRequest, "month must be YYYY-MM")
		return
	}

	job := &jobs.ExportStatementJob{
		IdentityID: identity.ID,
		Month:      req.Month,
	}
	if err := h.publisher.PublishExportStatement(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue export job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue export job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("month", req.Month).Msg("Export job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"month":  req.Month,
		"status": string(job.Status),
	})
}

// GetJob handles GET /api/jobs/{id}. Jobs are only visible to the identity
// that enqueued them.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil || job.IdentityID != identity.ID {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	filter := jobs.JobFilter{
		IdentityID: identity.ID,
		Status:     jobs.JobStatus(r.URL.Query().Get("status")),
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
