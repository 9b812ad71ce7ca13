package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/openboard/relayq/internal/api/middleware"
	"github.com/openboard/relayq/internal/api/response"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	WorkerAuth *mw.WorkerAuth
	RateLimit  *mw.RateLimit

	HealthHandler      http.HandlerFunc
	CreateJobHandler   http.HandlerFunc
	GetJobHandler      http.HandlerFunc
	CancelJobHandler   http.HandlerFunc
	StreamJobHandler   http.HandlerFunc
	ProgressHandler    http.HandlerFunc
	SessionJobsHandler http.HandlerFunc
}

// NewRouter builds the Chi router with the middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Client surface
	r.Group(func(r chi.Router) {
		r.With(deps.RateLimit.Limit).Post("/api/v1/jobs", orNotImplemented(deps.CreateJobHandler))
		r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJobHandler))
		r.Delete("/api/v1/jobs/{jobID}", orNotImplemented(deps.CancelJobHandler))
		r.Get("/api/v1/jobs/{jobID}/stream", orNotImplemented(deps.StreamJobHandler))
		r.Get("/api/v1/sessions/{sessionID}/jobs", orNotImplemented(deps.SessionJobsHandler))
	})

	// Worker callback, guarded by the shared-secret check before any store
	// mutation can happen.
	r.Group(func(r chi.Router) {
		r.Use(deps.WorkerAuth.Guard)
		r.Patch("/api/v1/jobs/{jobID}/progress", orNotImplemented(deps.ProgressHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
