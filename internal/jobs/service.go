// Package jobs implements the job lifecycle: create, get, cancel, and
// worker-reported progress, enforcing the state machine over the job store.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/openboard/relayq/internal/complexity"
	"github.com/openboard/relayq/internal/metrics"
	"github.com/openboard/relayq/internal/store"
	"github.com/openboard/relayq/pkg/models"
)

// ErrInvalidUpdate marks a worker update whose payload fails validation.
// Distinct from a stale update, which is not an error at all.
var ErrInvalidUpdate = errors.New("invalid worker update")

// Trigger is the outbound interface to the external worker. Nil is a valid
// trigger: correctness never depends on the trigger reaching the worker,
// only on the worker calling back or the lazy timeout firing.
type Trigger interface {
	// TriggerAsync wakes the worker for a persisted job. Best-effort.
	TriggerAsync(ctx context.Context, job *models.Job, content string) error

	// ProcessSync runs a simple request inline against the worker and waits
	// for the result.
	ProcessSync(ctx context.Context, content, jobType string, timeout time.Duration) (*models.JobResult, error)
}

// Service coordinates the job state machine against the store. Every write
// path re-reads the current record immediately before writing and drops its
// own update if the record has already reached a terminal state, so the
// first terminal transition wins even under concurrent writers.
type Service struct {
	store   store.Store
	trigger Trigger
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a lifecycle service. ttl is the fixed window between a
// job's creation and its store-level expiry. trigger may be nil.
func NewService(st store.Store, trigger Trigger, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{
		store:   st,
		trigger: trigger,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateOutcome is the result of routing one intake request.
type CreateOutcome struct {
	Path     string
	Analysis complexity.Analysis

	// Result is set on the sync path when a worker is configured.
	Result *models.JobResult

	// Job is set on the async path.
	Job *models.Job
}

// Create classifies the request and either processes it inline (sync path,
// nothing persisted) or persists a pending job and wakes the worker.
func (s *Service) Create(ctx context.Context, content, sessionID string) (*CreateOutcome, error) {
	analysis := complexity.Analyze(content)

	if analysis.RecommendedPath == complexity.PathSync {
		outcome, err := s.createSync(ctx, content, analysis)
		if err == nil {
			return outcome, nil
		}
		// Inline processing failed; degrade to the async path so the request
		// is not lost.
		s.logger.Warn("sync path failed, falling back to async",
			"error", err, "session_id", sessionID)
	}

	return s.createAsync(ctx, content, sessionID, analysis)
}

func (s *Service) createSync(ctx context.Context, content string, analysis complexity.Analysis) (*CreateOutcome, error) {
	outcome := &CreateOutcome{Path: complexity.PathSync, Analysis: analysis}
	if s.trigger == nil {
		// No worker configured; the caller handles the request inline.
		metrics.SyncRequestsTotal.Inc()
		return outcome, nil
	}

	result, err := s.trigger.ProcessSync(ctx, content, analysis.JobType, analysis.TimeoutBudget)
	if err != nil {
		return nil, fmt.Errorf("process sync: %w", err)
	}
	metrics.SyncRequestsTotal.Inc()
	outcome.Result = result
	return outcome, nil
}

func (s *Service) createAsync(ctx context.Context, content, sessionID string, analysis complexity.Analysis) (*CreateOutcome, error) {
	now := s.now()
	triggerStatus := models.TriggerStatusNone
	if s.trigger != nil {
		triggerStatus = models.TriggerStatusAttempted
	}

	job := &models.Job{
		ID:              uuid.New(),
		SessionID:       sessionID,
		Type:            analysis.JobType,
		Status:          models.JobStatusPending,
		Complexity:      analysis.Level,
		TimeoutBudgetMs: analysis.TimeoutBudget.Milliseconds(),
		TriggerStatus:   triggerStatus,
		CreatedAt:       now,
		UpdatedAt:       now,
		ExpiresAt:       now.Add(s.ttl),
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	metrics.JobsCreatedTotal.WithLabelValues(job.Complexity).Inc()

	if s.trigger != nil {
		s.fireTrigger(ctx, job, content)
	}

	return &CreateOutcome{Path: complexity.PathAsync, Analysis: analysis, Job: job}, nil
}

// fireTrigger wakes the worker for a freshly persisted job. Failures are
// logged once and recorded on the job; they never fail the create.
func (s *Service) fireTrigger(ctx context.Context, job *models.Job, content string) {
	err := s.trigger.TriggerAsync(ctx, job, content)
	if err == nil {
		return
	}
	metrics.TriggerFailuresTotal.Inc()
	s.logger.Warn("worker trigger failed", "job_id", job.ID, "error", err)

	// Record the failed attempt, but only if the worker has not already
	// started reporting in the meantime.
	current, err := s.store.GetJob(ctx, job.ID)
	if err != nil || current.Status != models.JobStatusPending {
		return
	}
	current.TriggerStatus = models.TriggerStatusFailed
	current.UpdatedAt = s.now()
	if err := s.store.UpdateJob(ctx, current); err != nil {
		s.logger.Warn("recording trigger failure failed", "job_id", job.ID, "error", err)
	}
}

// Get returns the current job state. It is a pure read except for the lazy
// timeout: a non-terminal job older than its budget is transitioned to
// failed at the moment a reader observes it.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	if !job.IsTerminal() && job.TimedOut(s.now()) {
		job.Status = models.JobStatusFailed
		job.Error = &models.JobError{
			Code:    models.ErrCodeTimeout,
			Message: fmt.Sprintf("job exceeded its %dms timeout budget", job.TimeoutBudgetMs),
		}
		job.UpdatedAt = s.now()
		metrics.JobsTerminalTotal.WithLabelValues(models.JobStatusFailed).Inc()

		// First observer wins; a concurrent writer persisting the same
		// terminal transition is harmless.
		if err := s.store.UpdateJob(ctx, job); err != nil {
			s.logger.Warn("persisting lazy timeout failed", "job_id", id, "error", err)
		}
	}

	return job, nil
}

// Cancel transitions a non-terminal job to cancelled. Cancelling an already
// terminal job is a no-op returning the existing state, so cancellation can
// never undo a completion.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.IsTerminal() {
		return job, nil
	}

	job.Status = models.JobStatusCancelled
	job.Error = &models.JobError{Code: models.ErrCodeCancelled, Message: "cancelled by client"}
	job.UpdatedAt = s.now()
	if err := s.store.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("persist cancel: %w", err)
	}
	metrics.JobsTerminalTotal.WithLabelValues(models.JobStatusCancelled).Inc()
	return job, nil
}

// WorkerUpdate is one authenticated callback from the external worker:
// either a progress report or a completion.
type WorkerUpdate struct {
	// Progress is set for progress reports.
	Progress *int

	// Status is completed or failed for completions, empty otherwise.
	Status       string
	Result       *models.JobResult
	ErrorMessage string
}

// ApplyWorkerUpdate applies a worker callback under the state-machine guard.
// Updates arriving after the job is terminal, and progress values lower than
// the stored one, return accepted=false without touching the record: these
// are expected race outcomes, not faults.
func (s *Service) ApplyWorkerUpdate(ctx context.Context, id uuid.UUID, upd WorkerUpdate) (bool, *models.Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return false, nil, err
	}

	if job.IsTerminal() {
		metrics.WorkerUpdatesTotal.WithLabelValues("rejected").Inc()
		return false, job, nil
	}

	switch {
	case upd.Status != "":
		if err := s.applyCompletion(job, upd); err != nil {
			return false, job, err
		}
	case upd.Progress != nil:
		p := *upd.Progress
		if p < 0 || p > 100 {
			return false, job, fmt.Errorf("%w: progress %d out of range", ErrInvalidUpdate, p)
		}
		if p < job.Progress {
			// Out-of-order delivery; last write wins by monotonic value.
			metrics.WorkerUpdatesTotal.WithLabelValues("rejected").Inc()
			return false, job, nil
		}
		job.Status = models.JobStatusProcessing
		job.Progress = p
	default:
		return false, job, fmt.Errorf("%w: neither progress nor status given", ErrInvalidUpdate)
	}

	job.UpdatedAt = s.now()
	if err := s.store.UpdateJob(ctx, job); err != nil {
		return false, job, fmt.Errorf("persist worker update: %w", err)
	}

	metrics.WorkerUpdatesTotal.WithLabelValues("accepted").Inc()
	if job.IsTerminal() {
		metrics.JobsTerminalTotal.WithLabelValues(job.Status).Inc()
	}
	return true, job, nil
}

func (s *Service) applyCompletion(job *models.Job, upd WorkerUpdate) error {
	switch upd.Status {
	case models.JobStatusCompleted:
		if err := upd.Result.Validate(job.Type); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidUpdate, err)
		}
		job.Status = models.JobStatusCompleted
		job.Result = upd.Result
		job.Error = nil
		job.Progress = 100
	case models.JobStatusFailed:
		if upd.ErrorMessage == "" {
			return fmt.Errorf("%w: failed completion requires an error message", ErrInvalidUpdate)
		}
		job.Status = models.JobStatusFailed
		job.Error = &models.JobError{Code: models.ErrCodeWorkerFailed, Message: upd.ErrorMessage}
	default:
		return fmt.Errorf("%w: status must be completed or failed, got %q", ErrInvalidUpdate, upd.Status)
	}
	return nil
}

// ListSession returns the session's most recent jobs via the secondary index.
func (s *Service) ListSession(ctx context.Context, sessionID string, limit int) ([]*models.Job, error) {
	return s.store.ListBySession(ctx, sessionID, limit)
}
