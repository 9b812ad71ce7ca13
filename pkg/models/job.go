package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
	JobStatusCancelled  = "cancelled"
)

const (
	JobTypeQuery    = "query"
	JobTypeAnalysis = "analysis"
	JobTypeReport   = "report"
)

const (
	ComplexitySimple  = "simple"
	ComplexityMedium  = "medium"
	ComplexityComplex = "complex"
)

const (
	TriggerStatusNone      = "none"
	TriggerStatusAttempted = "attempted"
	TriggerStatusFailed    = "failed"
)

// Error codes surfaced in JobError.Code.
const (
	ErrCodeTimeout      = "JOB_TIMEOUT"
	ErrCodeCancelled    = "JOB_CANCELLED"
	ErrCodeWorkerFailed = "WORKER_FAILED"
)

// Job tracks one unit of deferred AI work. The API returns a jobId on
// POST /api/v1/jobs; the client polls GET /api/v1/jobs/{jobId} or subscribes
// to GET /api/v1/jobs/{jobId}/stream until the status is terminal.
//
// Records live in a TTL key-value store; ExpiresAt drives store-level expiry
// as a leak-prevention backstop, so a missing record and an expired record
// are indistinguishable.
type Job struct {
	ID              uuid.UUID  `json:"id"`
	SessionID       string     `json:"sessionId"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	Progress        int        `json:"progress"`
	Complexity      string     `json:"complexity"`
	TimeoutBudgetMs int64      `json:"timeoutBudgetMs"`
	Result          *JobResult `json:"result,omitempty"`
	Error           *JobError  `json:"error,omitempty"`
	TriggerStatus   string     `json:"triggerStatus"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	ExpiresAt       time.Time  `json:"expiresAt"`
}

// JobError carries the failure reason of a terminal job. Exactly one of
// Result and Error is set once a job reaches a terminal state.
type JobError struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// IsTerminalStatus reports whether status is a sink in the job state machine.
// No transition ever leaves a terminal state.
func IsTerminalStatus(status string) bool {
	switch status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the job has reached a terminal state.
func (j *Job) IsTerminal() bool {
	return IsTerminalStatus(j.Status)
}

// TimedOut reports whether the job's age exceeds its timeout budget at the
// given instant. Only meaningful while non-terminal; the timeout transition
// itself is applied lazily by readers.
func (j *Job) TimedOut(now time.Time) bool {
	return now.Sub(j.CreatedAt) > time.Duration(j.TimeoutBudgetMs)*time.Millisecond
}

// JobStatusResponse is the client-facing view of a job, returned by the
// status endpoint and mirrored in every stream event.
type JobStatusResponse struct {
	JobID           uuid.UUID  `json:"jobId"`
	Status          string     `json:"status"`
	Progress        int        `json:"progress"`
	Type            string     `json:"type"`
	Complexity      string     `json:"complexity"`
	TimeoutBudgetMs int64      `json:"timeoutBudgetMs"`
	Result          *JobResult `json:"result,omitempty"`
	Error           *JobError  `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// StatusResponse builds the client-facing view of the job.
func (j *Job) StatusResponse() *JobStatusResponse {
	return &JobStatusResponse{
		JobID:           j.ID,
		Status:          j.Status,
		Progress:        j.Progress,
		Type:            j.Type,
		Complexity:      j.Complexity,
		TimeoutBudgetMs: j.TimeoutBudgetMs,
		Result:          j.Result,
		Error:           j.Error,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
	}
}
