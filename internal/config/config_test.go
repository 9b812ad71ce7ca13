package config_test

import (
	"testing"
	"time"

	"github.com/openboard/relayq/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.Development())
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "./data/relayq", cfg.BadgerPath)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, 3*time.Second, cfg.TriggerTimeout)
	assert.Equal(t, 30*time.Minute, cfg.JobTTL)
	assert.Equal(t, 50, cfg.SessionIndexCap)
	assert.Equal(t, 30, cfg.RateLimitPerMin)
	assert.Equal(t, 500*time.Millisecond, cfg.StreamPollInterval)
	assert.Equal(t, 2*time.Minute, cfg.StreamMaxDuration)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("RELAYQ_ENV", "staging")
	t.Setenv("RELAYQ_PORT", "9090")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("WORKER_URL", "http://worker:8100")
	t.Setenv("WORKER_SHARED_SECRET", "s3cret")
	t.Setenv("JOB_TTL", "1h")
	t.Setenv("STREAM_POLL_INTERVAL", "250ms")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Env)
	assert.False(t, cfg.Development())
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, "http://worker:8100", cfg.WorkerURL)
	assert.Equal(t, time.Hour, cfg.JobTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.StreamPollInterval)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown env name", "RELAYQ_ENV", "sandbox"},
		{"port out of range", "RELAYQ_PORT", "70000"},
		{"malformed worker url", "WORKER_URL", "not a url"},
		{"poll interval too small", "STREAM_POLL_INTERVAL", "50ms"},
		{"poll interval not sub-second", "STREAM_POLL_INTERVAL", "2s"},
		{"session index cap zero", "SESSION_INDEX_CAP", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ProductionRequiresRedisAndSecret(t *testing.T) {
	t.Setenv("RELAYQ_ENV", "production")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL")

	t.Setenv("REDIS_URL", "redis://prod:6379")
	_, err = config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WORKER_SHARED_SECRET")

	t.Setenv("WORKER_SHARED_SECRET", "s3cret")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.False(t, cfg.Development())
}
