package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether one more request for a key may proceed
type Limiter interface {
	TryAcquireForKey(key string) bool
	Stats() map[string]interface{}
	Health() error
}

// RedisInterface is the Redis surface the distributed limiter needs
type RedisInterface interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
	Health() error
}
