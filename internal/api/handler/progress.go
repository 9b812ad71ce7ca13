package handler

import (
	"encoding/json"
	"net/http"

	"github.com/openboard/relayq/internal/api/response"
	"github.com/openboard/relayq/internal/jobs"
	"github.com/openboard/relayq/pkg/models"
)

type progressRequest struct {
	Progress *int              `json:"progress,omitempty"`
	Status   string            `json:"status,omitempty"`
	Result   *models.JobResult `json:"result,omitempty"`
	Error    string            `json:"error,omitempty"`
}

type progressResponse struct {
	Accepted bool   `json:"accepted"`
	Status   string `json:"status"`
}

// NewProgressHandler returns the handler for PATCH /api/v1/jobs/{jobID}/progress,
// the worker-only callback. A stale update (terminal record, or a progress
// value below the stored one) answers 200 with accepted=false: it is an
// expected race outcome, not an HTTP error.
func NewProgressHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseJobID(w, r)
		if !ok {
			return
		}

		var req progressRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		accepted, job, err := svc.ApplyWorkerUpdate(r.Context(), id, jobs.WorkerUpdate{
			Progress:     req.Progress,
			Status:       req.Status,
			Result:       req.Result,
			ErrorMessage: req.Error,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		response.JSON(w, progressResponse{Accepted: accepted, Status: job.Status})
	}
}
