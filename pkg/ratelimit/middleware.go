package ratelimit

import (
	"math"
	"net/http"
	"strconv"
)

// Middleware gates every request through the named resource. Denials get a
// 429 with Retry-After; admitted requests carry X-RateLimit headers.
// Resolution errors fail open.
func Middleware(reg *Registry, resource string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := reg.TryAcquire(resource)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			if cfg, err := reg.ConfigOf(resource); err == nil {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.capacity()))
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(d.Remaining)))

			if !d.Allowed {
				retryAfter := int(math.Ceil(d.RetryAfter.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
