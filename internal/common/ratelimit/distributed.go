package ratelimit

import (
	"context"
	"fmt"
	"time"

	"snapmaster-gcp/internal/common/logging"
)

// distributedLimiter implements Redis-backed sliding window limiting
type distributedLimiter struct {
	config      Config
	redisClient RedisInterface
	logger      logging.Logger
}

// NewDistributedLimiter creates a limiter shared by every replica using the
// same Redis. A Redis failure lets the request through.
func NewDistributedLimiter(config Config, redisClient RedisInterface, logger logging.Logger) (Limiter, error) {
	config.Type = BackendDistributed
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required for distributed rate limiter")
	}

	return &distributedLimiter{
		config:      config,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// TryAcquireForKey allows up to BurstSize hits per key in any one-second window
func (rl *distributedLimiter) TryAcquireForKey(key string) bool {
	if !rl.config.Enabled {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	allowed, _, err := rl.redisClient.CheckRateLimit(ctx, rl.config.KeyPrefix+key, rl.config.BurstSize, time.Second)
	if err != nil {
		rl.logger.Warn("Rate limit check failed, allowing request",
			logging.Field{Key: "key", Value: key},
			logging.Field{Key: "error", Value: err.Error()},
		)
		return true
	}

	return allowed
}

func (rl *distributedLimiter) Stats() map[string]interface{} {
	return map[string]interface{}{
		"type":                "distributed",
		"enabled":             rl.config.Enabled,
		"requests_per_second": rl.config.RequestsPerSecond,
		"burst_size":          rl.config.BurstSize,
		"key_prefix":          rl.config.KeyPrefix,
	}
}

func (rl *distributedLimiter) Health() error {
	return rl.redisClient.Health()
}

var _ Limiter = (*distributedLimiter)(nil)
