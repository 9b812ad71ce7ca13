package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/openboard/relayq/internal/api/response"
	"github.com/openboard/relayq/internal/store"
)

const defaultRequestsPerMinute = 30

const rateLimitWindow = 60 * time.Second

// RateLimit provides fixed-window rate limiting keyed by client IP, counted
// in the job store backend. It bounds how many pending jobs one client can
// accumulate, which is the system's only backpressure mechanism.
type RateLimit struct {
	counter        store.Counter
	requestsPerMin int
}

func NewRateLimit(c store.Counter, requestsPerMin int) *RateLimit {
	if requestsPerMin <= 0 {
		requestsPerMin = defaultRequestsPerMinute
	}
	return &RateLimit{counter: c, requestsPerMin: requestsPerMin}
}

// Limit applies the rate limit. On a counter backend error the request is
// allowed through (fail open): losing rate limiting briefly is better than
// refusing all intake.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := store.RateLimitKey(clientIP(r))
		count, err := rl.counter.IncrWithExpiry(r.Context(), key, rateLimitWindow)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		remaining := rl.requestsPerMin - int(count)
		if remaining < 0 {
			remaining = 0
		}
		resetTime := time.Now().Add(rateLimitWindow).Unix()

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime, 10))

		if count > int64(rl.requestsPerMin) {
			w.Header().Set("Retry-After", "60")
			response.Error(w, http.StatusTooManyRequests,
				"RATE_LIMIT_EXCEEDED", "Too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
