package handler

import (
	"errors"
	"net/http"

	"github.com/openboard/relayq/internal/api/response"
	"github.com/openboard/relayq/internal/jobs"
	"github.com/openboard/relayq/internal/store"
)

// writeServiceError maps lifecycle/store errors onto the response envelope.
// A missing job and an expired job produce the same 404.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
	case errors.Is(err, store.ErrUnavailable):
		response.Error(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE",
			"The job store is unavailable", nil)
	case errors.Is(err, jobs.ErrInvalidUpdate):
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
