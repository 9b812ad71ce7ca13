// Package stream converts the job store's poll-only interface into a
// push-style Server-Sent-Events stream for one connected client per request.
// The relay is a pure read-side adapter: it never writes to the store, so
// any number of simultaneous relays for the same job are safe.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/openboard/relayq/internal/metrics"
	"github.com/openboard/relayq/pkg/models"
)

// Getter is the read side of the job lifecycle the relay polls. Get owns the
// lazy timeout transition, so a stream observes a timed-out job as failed.
type Getter interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

// Relay streams job state changes to a client.
type Relay struct {
	jobs        Getter
	interval    time.Duration
	maxDuration time.Duration
	logger      *slog.Logger
}

func NewRelay(jobs Getter, interval, maxDuration time.Duration, logger *slog.Logger) *Relay {
	return &Relay{
		jobs:        jobs,
		interval:    interval,
		maxDuration: maxDuration,
		logger:      logger,
	}
}

// Serve streams the job's state until a terminal status is emitted, the
// client disconnects, or the maximum stream duration is reached (the client
// is expected to fall back to polling after that). The first fetch happens
// before any response bytes are written, so a missing job still surfaces as
// a plain error the handler can map to 404.
func (r *Relay) Serve(ctx context.Context, w http.ResponseWriter, jobID uuid.UUID) error {
	job, err := r.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("response writer does not support streaming")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	if err := writeEvent(w, flusher, job); err != nil {
		return nil // client gone
	}
	if job.IsTerminal() {
		return nil
	}

	lastStatus, lastProgress := job.Status, job.Progress
	deadline := time.NewTimer(r.maxDuration)
	defer deadline.Stop()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline.C:
			r.logger.Debug("stream hit max duration", "job_id", jobID)
			return nil
		case <-ticker.C:
		}

		job, err := r.jobs.Get(ctx, jobID)
		if err != nil {
			// Expired mid-stream; nothing further will ever arrive.
			return nil
		}
		if job.Status == lastStatus && job.Progress == lastProgress {
			continue
		}

		if err := writeEvent(w, flusher, job); err != nil {
			return nil
		}
		if job.IsTerminal() {
			return nil
		}
		lastStatus, lastProgress = job.Status, job.Progress
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, job *models.Job) error {
	data, err := json.Marshal(job.StatusResponse())
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: status\ndata: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
