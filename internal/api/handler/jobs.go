package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/openboard/relayq/internal/api/response"
	"github.com/openboard/relayq/internal/complexity"
	"github.com/openboard/relayq/internal/jobs"
	"github.com/openboard/relayq/pkg/models"
)

const maxContentLen = 32 * 1024 // runes

const defaultSessionLimit = 20

// JobService is the lifecycle interface the handlers depend on.
type JobService interface {
	Create(ctx context.Context, content, sessionID string) (*jobs.CreateOutcome, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Job, error)
	Cancel(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ApplyWorkerUpdate(ctx context.Context, id uuid.UUID, upd jobs.WorkerUpdate) (bool, *models.Job, error)
	ListSession(ctx context.Context, sessionID string, limit int) ([]*models.Job, error)
}

type createRequest struct {
	Content   string `json:"content"`
	SessionID string `json:"sessionId"`
}

type createAsyncResponse struct {
	JobID           uuid.UUID `json:"jobId"`
	Status          string    `json:"status"`
	Complexity      string    `json:"complexity"`
	TimeoutBudgetMs int64     `json:"timeoutBudgetMs"`
}

type createSyncResponse struct {
	RecommendedPath string            `json:"recommendedPath"`
	Complexity      string            `json:"complexity"`
	Result          *models.JobResult `json:"result,omitempty"`
}

// NewCreateHandler returns the handler for POST /api/v1/jobs. The complexity
// analyzer routes the request: simple content is answered inline with no job
// persisted; everything else becomes a pending job.
func NewCreateHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Content == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "content is required", nil)
			return
		}
		if utf8.RuneCountInString(req.Content) > maxContentLen {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "content too long", nil)
			return
		}
		if req.SessionID == "" {
			req.SessionID = uuid.NewString()
		}

		outcome, err := svc.Create(r.Context(), req.Content, req.SessionID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		if outcome.Path == complexity.PathSync {
			response.JSON(w, createSyncResponse{
				RecommendedPath: outcome.Path,
				Complexity:      outcome.Analysis.Level,
				Result:          outcome.Result,
			})
			return
		}

		response.Accepted(w, createAsyncResponse{
			JobID:           outcome.Job.ID,
			Status:          outcome.Job.Status,
			Complexity:      outcome.Job.Complexity,
			TimeoutBudgetMs: outcome.Job.TimeoutBudgetMs,
		})
	}
}

// NewGetHandler returns the handler for GET /api/v1/jobs/{jobID}.
func NewGetHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseJobID(w, r)
		if !ok {
			return
		}
		job, err := svc.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, job.StatusResponse())
	}
}

// NewCancelHandler returns the handler for DELETE /api/v1/jobs/{jobID}.
// Cancelling an already terminal job is idempotent and returns the existing
// terminal state.
func NewCancelHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseJobID(w, r)
		if !ok {
			return
		}
		job, err := svc.Cancel(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, job.StatusResponse())
	}
}

// NewListSessionJobsHandler returns the handler for
// GET /api/v1/sessions/{sessionID}/jobs.
func NewListSessionJobsHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		if sessionID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "sessionID is required", nil)
			return
		}

		limit := defaultSessionLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 100 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"limit must be an integer between 1 and 100", nil)
				return
			}
			limit = n
		}

		list, err := svc.ListSession(r.Context(), sessionID, limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		items := make([]*models.JobStatusResponse, 0, len(list))
		for _, job := range list {
			items = append(items, job.StatusResponse())
		}
		response.JSON(w, items)
	}
}

func parseJobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}
