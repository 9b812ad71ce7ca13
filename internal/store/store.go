// Package store is the narrow serialization/TTL boundary over the durable
// key-value store holding job records. It owns no business rules, so the
// lifecycle service and streaming relay can be tested against the in-memory
// backend implementing the same contract.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openboard/relayq/pkg/models"
)

// ErrNotFound is returned when a job is missing or already expired. The two
// cases are deliberately indistinguishable.
var ErrNotFound = errors.New("job not found")

// ErrUnavailable wraps backend connectivity failures. Handlers surface it as
// a 503; no retry happens inside this subsystem.
var ErrUnavailable = errors.New("store unavailable")

// Store is the job store contract. All operations are single-key; no
// multi-key transaction is assumed beyond what one backend write provides.
type Store interface {
	Ping(ctx context.Context) error

	// CreateJob persists a new record with TTL = ExpiresAt - now and appends
	// the job id to the capped per-session index.
	CreateJob(ctx context.Context, job *models.Job) error

	// UpdateJob overwrites an existing record, preserving the absolute expiry.
	UpdateJob(ctx context.Context, job *models.Job) error

	// GetJob returns ErrNotFound for a missing or expired record.
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)

	// ListBySession returns up to limit jobs for the session, newest first,
	// silently skipping ids whose records have expired.
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*models.Job, error)

	Close() error
}

// Counter is the increment-with-expiry primitive the rate limiter rides on.
// Every backend implements it alongside Store.
type Counter interface {
	IncrWithExpiry(ctx context.Context, key string, window time.Duration) (int64, error)
}

func JobKey(id uuid.UUID) string {
	return fmt.Sprintf("job:%s", id)
}

func SessionJobsKey(sessionID string) string {
	return fmt.Sprintf("session:%s:jobs", sessionID)
}

func RateLimitKey(client string) string {
	return fmt.Sprintf("ratelimit:%s", client)
}

// recordTTL computes the remaining store TTL for a job. Records already past
// their expiry get a 1s floor so a final write is still collected by the
// store rather than rejected.
func recordTTL(job *models.Job, now time.Time) time.Duration {
	ttl := job.ExpiresAt.Sub(now)
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}
