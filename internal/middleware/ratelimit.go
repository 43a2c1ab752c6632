package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jerichox/jerichox-security/internal/ratelimit"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string, cfg ratelimit.LimitConfig) (*ratelimit.Decision, error)
}

// RateLimit caps how often one user can hit the wrapped routes. The key is
// scope plus the authenticated user id, so it must run after JWTAuth.
// Limiter outages fail open.
func RateLimit(l RateLimiter, scope string, cfg ratelimit.LimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := GetAuthContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			d, err := l.Allow(r.Context(), ac.RateKey(scope), cfg)
			if err != nil {
				slog.Warn("rate limiter unavailable, allowing request", "scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(d.RetryAfter.Seconds())+1))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"Rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
