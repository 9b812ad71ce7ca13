package jobs_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/openboard/relayq/internal/jobs"
	"github.com/openboard/relayq/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerClient_TriggerAsync(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/jobs/trigger", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := jobs.NewWorkerClient(srv.URL, "s3cret", time.Second, slog.Default())
	job := &models.Job{
		ID:              uuid.New(),
		Type:            models.JobTypeAnalysis,
		TimeoutBudgetMs: 30_000,
	}

	err := client.TriggerAsync(context.Background(), job, "analyze the spike")
	require.NoError(t, err)

	assert.Equal(t, "Bearer s3cret", gotAuth)
	assert.Equal(t, job.ID.String(), gotBody["jobId"])
	assert.Equal(t, models.JobTypeAnalysis, gotBody["type"])
	assert.Equal(t, "analyze the spike", gotBody["content"])
	assert.Equal(t, float64(30_000), gotBody["timeoutBudgetMs"])
}

func TestWorkerClient_TriggerAsyncNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := jobs.NewWorkerClient(srv.URL, "", time.Second, slog.Default())
	err := client.TriggerAsync(context.Background(), &models.Job{ID: uuid.New()}, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestWorkerClient_TriggerAsyncTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := jobs.NewWorkerClient(srv.URL, "", 20*time.Millisecond, slog.Default())
	err := client.TriggerAsync(context.Background(), &models.Job{ID: uuid.New()}, "x")
	assert.Error(t, err)
}

func TestWorkerClient_ProcessSync(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/process", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, models.JobTypeQuery, body["type"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.JobResult{
			Type:   models.JobTypeQuery,
			Answer: "cpu at 40%",
		})
	}))
	defer srv.Close()

	client := jobs.NewWorkerClient(srv.URL, "", time.Second, slog.Default())
	result, err := client.ProcessSync(context.Background(), "current cpu?", models.JobTypeQuery, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "cpu at 40%", result.Answer)
}

func TestWorkerClient_ProcessSyncRejectsMismatchedResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Worker answers with the wrong result type for the request.
		_ = json.NewEncoder(w).Encode(models.JobResult{
			Type:    models.JobTypeAnalysis,
			Summary: "not what was asked",
		})
	}))
	defer srv.Close()

	client := jobs.NewWorkerClient(srv.URL, "", time.Second, slog.Default())
	_, err := client.ProcessSync(context.Background(), "hi", models.JobTypeQuery, 10*time.Second)
	assert.Error(t, err)
}
