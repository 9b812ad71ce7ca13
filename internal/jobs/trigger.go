package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/openboard/relayq/pkg/models"
)

// WorkerClient talks to the external worker service over HTTP. It carries
// the shared secret so the worker can tell the dashboard's calls apart from
// anything else reaching it.
type WorkerClient struct {
	client         *resty.Client
	triggerTimeout time.Duration
	logger         *slog.Logger
}

// NewWorkerClient creates a worker client for the given base URL.
// triggerTimeout bounds only the fire-and-forget trigger call; ProcessSync
// takes its deadline from the request's timeout budget instead.
func NewWorkerClient(baseURL, secret string, triggerTimeout time.Duration, logger *slog.Logger) *WorkerClient {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("Content-Type", "application/json")
	if secret != "" {
		client.SetHeader("Authorization", "Bearer "+secret)
	}
	return &WorkerClient{client: client, triggerTimeout: triggerTimeout, logger: logger}
}

type triggerRequest struct {
	JobID           string `json:"jobId"`
	Type            string `json:"type"`
	Content         string `json:"content"`
	TimeoutBudgetMs int64  `json:"timeoutBudgetMs"`
}

type processRequest struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// TriggerAsync wakes the worker for a persisted job. The worker reports back
// through the progress endpoint; this call only has to land at-least-once
// attempted, so any non-2xx is reported as a plain error for the caller to
// log and move on.
func (c *WorkerClient) TriggerAsync(ctx context.Context, job *models.Job, content string) error {
	ctx, cancel := context.WithTimeout(ctx, c.triggerTimeout)
	defer cancel()

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(triggerRequest{
			JobID:           job.ID.String(),
			Type:            job.Type,
			Content:         content,
			TimeoutBudgetMs: job.TimeoutBudgetMs,
		}).
		Post("/v1/jobs/trigger")
	if err != nil {
		return fmt.Errorf("trigger worker: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("trigger worker: status %d", resp.StatusCode())
	}
	return nil
}

// ProcessSync runs a simple request against the worker inline and waits for
// the result, bounded by the request's timeout budget.
func (c *WorkerClient) ProcessSync(ctx context.Context, content, jobType string, timeout time.Duration) (*models.JobResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(processRequest{Type: jobType, Content: content}).
		SetResult(&models.JobResult{}).
		Post("/v1/process")
	if err != nil {
		return nil, fmt.Errorf("process sync: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("process sync: status %d", resp.StatusCode())
	}

	result := resp.Result().(*models.JobResult)
	if err := result.Validate(jobType); err != nil {
		return nil, fmt.Errorf("process sync: %w", err)
	}
	return result, nil
}
