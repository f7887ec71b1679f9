package middleware

import (
	"net/http"
	"strconv"

	"golang.org/x/time/rate"
)

// RejectFunc answers a request refused by a middleware.
type RejectFunc func(w http.ResponseWriter, r *http.Request, code int, message string)

// WithRateLimit admits at most limit requests per second with the given burst
// across all clients. Refused requests get a Retry-After header and are
// handed to reject. A non-positive limit disables limiting.
func WithRateLimit(limit float64, burst int, reject RejectFunc) func(http.Handler) http.Handler {
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := rate.NewLimiter(rate.Limit(limit), max(burst, 1))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				rateLimitRejects.Inc()
				w.Header().Set("Retry-After", "1")
				reject(w, r, http.StatusTooManyRequests, "rate limit exceeded")

				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(int(limit)))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))

			next.ServeHTTP(w, r)
		})
	}
}
