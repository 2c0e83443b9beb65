package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/capturedeck/capturedeck/internal/cache"
)

// RateLimiter applies a fixed-window per-IP budget backed by redis, so
// the budget is shared across API replicas. It wraps the auth endpoints
// only; the auth services themselves never assume it is present.
type RateLimiter struct {
	cache  *cache.Cache
	limit  int64
	window time.Duration
}

func NewRateLimiter(c *cache.Cache, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{cache: c, limit: int64(limit), window: window}
}

func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		key := fmt.Sprintf("ratelimit:%s:%s", r.URL.Path, ip)

		n, err := rl.cache.IncrementWindow(r.Context(), key, rl.window)
		if err != nil {
			// Fail open: a redis outage must not take auth down with it.
			slog.Warn("rate limiter unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		if n > rl.limit {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rl.window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
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
