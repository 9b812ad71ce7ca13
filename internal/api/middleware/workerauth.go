package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/openboard/relayq/internal/api/response"
)

// WorkerAuth guards the worker-only progress endpoint. The external worker
// is stateless, so authentication is one shared bearer secret rather than
// per-caller credentials.
type WorkerAuth struct {
	secret      string
	development bool
}

// NewWorkerAuth creates the guard. development enables the open-access
// exception when no secret is configured; it must be false in production so
// a missing secret fails closed.
func NewWorkerAuth(secret string, development bool) *WorkerAuth {
	return &WorkerAuth{secret: secret, development: development}
}

// Guard validates the worker's bearer credential before any store mutation
// is attempted. Rejections are logged with the job id and source address so
// a misconfigured worker can be told apart from an attack attempt.
func (a *WorkerAuth) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.secret == "" {
			if a.development {
				slog.Warn("worker auth disabled: no secret configured in development")
				next.ServeHTTP(w, r)
				return
			}
			slog.Error("worker update rejected: no worker secret configured",
				"job_id", chi.URLParam(r, "jobID"), "remote_addr", r.RemoteAddr)
			response.Error(w, http.StatusUnauthorized,
				"UNAUTHORIZED", "Worker authentication is not configured", nil)
			return
		}

		token := extractBearerToken(r)
		if subtle.ConstantTimeCompare([]byte(token), []byte(a.secret)) != 1 {
			slog.Warn("worker update rejected: invalid credential",
				"job_id", chi.URLParam(r, "jobID"), "remote_addr", r.RemoteAddr)
			response.Error(w, http.StatusUnauthorized,
				"UNAUTHORIZED", "Missing or invalid worker credential", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
