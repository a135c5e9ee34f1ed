// Package ratelimit limits inbound push deliveries per client. A local
// limiter keeps a token bucket per key in memory; a distributed limiter
// keeps a sliding window per key in Redis so that replicas share one budget.
//
//	limiter, err := ratelimit.New(ratelimit.Config{RequestsPerSecond: 20, BurstSize: 40, Enabled: true})
//	if err != nil {
//		return err
//	}
//	router.Use(ratelimit.HTTPMiddleware(limiter, ratelimit.IPKey))
package ratelimit
