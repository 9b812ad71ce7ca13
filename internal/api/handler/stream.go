package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Streamer is the relay interface the stream handler depends on.
type Streamer interface {
	Serve(ctx context.Context, w http.ResponseWriter, jobID uuid.UUID) error
}

// NewStreamHandler returns the handler for GET /api/v1/jobs/{jobID}/stream.
// The relay fetches the job before writing any response bytes, so a missing
// job still gets a regular JSON 404 instead of a broken event stream.
func NewStreamHandler(relay Streamer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseJobID(w, r)
		if !ok {
			return
		}
		if err := relay.Serve(r.Context(), w, id); err != nil {
			writeServiceError(w, err)
		}
	}
}
