// Package cache provides a small key/value cache with two backends:
//   - github.com/patrickmn/go-cache for a per-process in-memory cache
//   - github.com/go-redis/redis/v8 for a cache shared between replicas
//
// Values stored in Redis are JSON encoded, so Get returns the decoded
// JSON value (a string round-trips as a string).
//
// Usage:
//
//	c, err := cache.New(cache.Config{Type: cache.TypeRedis, RedisClient: client, KeyPrefix: "snapmaster-gcp:"})
//	c.Set(ctx, "service-token", token, 5*time.Minute)
//	val, found := c.Get(ctx, "service-token")
package cache
