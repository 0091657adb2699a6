package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Erick-Marinho/Health-AI/internal/conversation"
	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

type jobLookup interface {
	Job(ctx context.Context, jobID string) (*conversation.JobRecord, error)
}

// JobsHandler lets clients without a socket poll for a queued turn's reply.
type JobsHandler struct {
	jobs   jobLookup
	logger *logging.Logger
}

func NewJobsHandler(jobs jobLookup, logger *logging.Logger) *JobsHandler {
	if jobs == nil {
		panic("handlers: job lookup cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &JobsHandler{jobs: jobs, logger: logger}
}

// GetJob handles GET /v1/jobs/{jobID}.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := h.jobs.Job(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, conversation.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error("failed to load job", "error", err, "job_id", jobID)
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}
