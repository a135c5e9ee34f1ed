package app

import (
	"snapmaster-gcp/internal/common/logging"
	"snapmaster-gcp/internal/common/ratelimit"
)

// InitializeRateLimiter creates the per-IP webhook limiter, shared through
// Redis when it is available. It returns nil when WEBHOOK_RATE_LIMIT is 0.
func (app *App) InitializeRateLimiter() ratelimit.Limiter {
	if app.Config.WebhookRateLimit <= 0 {
		app.Logger.Info("Webhook rate limiting: Disabled")
		return nil
	}

	config := ratelimit.DefaultConfig()
	config.RequestsPerSecond = app.Config.WebhookRateLimit
	config.BurstSize = app.Config.WebhookRateBurst
	logger := app.Logger.WithFields(logging.Field{Key: "component", Value: "ratelimit"})

	if app.RedisClient != nil {
		config.Type = ratelimit.BackendDistributed
		limiter, err := ratelimit.New(config, app.RedisClient, logger)
		if err == nil {
			app.Logger.Info("Webhook rate limiting: Enabled (distributed)", logging.Field{Key: "rps", Value: config.RequestsPerSecond})
			return limiter
		}
		app.Logger.Warn("Distributed rate limiter unavailable, falling back to local",
			logging.Field{Key: "error", Value: err.Error()})
		config.Type = ratelimit.BackendLocal
	}

	limiter, err := ratelimit.New(config, nil, logger)
	if err != nil {
		app.Logger.Warn("Webhook rate limiting: Disabled", logging.Field{Key: "error", Value: err.Error()})
		return nil
	}
	app.Logger.Info("Webhook rate limiting: Enabled (local)", logging.Field{Key: "rps", Value: config.RequestsPerSecond})
	return limiter
}
