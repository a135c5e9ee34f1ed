package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"snapmaster-gcp/internal/common/logging"
)

// New creates a limiter for config. A distributed backend needs a Redis client.
func New(config Config, redisClient RedisInterface, logger logging.Logger) (Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case BackendLocal:
		return NewLocalLimiter(config)
	case BackendDistributed:
		return NewDistributedLimiter(config, redisClient, logger)
	default:
		return nil, fmt.Errorf("unsupported rate limiter backend type: %s", config.Type)
	}
}

// HTTPMiddleware rejects requests over the limit for their key with 429
func HTTPMiddleware(limiter Limiter, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.TryAcquireForKey(keyFunc(r)) {
				if burst, ok := limiter.Stats()["burst_size"].(int); ok {
					w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", burst))
				}
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IPKey keys requests by client address, preferring the first
// X-Forwarded-For hop set by the load balancer
func IPKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
