package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/openboard/relayq/internal/config"
	"github.com/openboard/relayq/internal/store"
	"github.com/openboard/relayq/pkg/models"
	"github.com/stretchr/testify/assert"
)

// downStore fails every operation, simulating an unreachable backend.
type downStore struct{}

var errDown = errors.New("store down")

func (downStore) Ping(context.Context) error                           { return errDown }
func (downStore) CreateJob(context.Context, *models.Job) error         { return errDown }
func (downStore) UpdateJob(context.Context, *models.Job) error         { return errDown }
func (downStore) GetJob(context.Context, uuid.UUID) (*models.Job, error) {
	return nil, errDown
}
func (downStore) ListBySession(context.Context, string, int) ([]*models.Job, error) {
	return nil, errDown
}
func (downStore) Close() error { return nil }

func TestHealthHandler_OK(t *testing.T) {
	h := healthHandler(store.NewMemoryStore(10))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHealthHandler_Degraded(t *testing.T) {
	h := healthHandler(downStore{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "DEGRADED")
}

func TestNewStore_BadgerFallback(t *testing.T) {
	cfg := &config.Config{BadgerPath: t.TempDir(), SessionIndexCap: 10}

	st, err := newStore(cfg)
	assert.NoError(t, err)
	if st != nil {
		assert.NoError(t, st.Ping(context.Background()))
		assert.NoError(t, st.Close())
	}
}

func TestNewLogger(t *testing.T) {
	assert.NotNil(t, newLogger(true))
	assert.NotNil(t, newLogger(false))
}
