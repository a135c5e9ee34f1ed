package app

import (
	"context"

	"snapmaster-gcp/internal/actions"
	"snapmaster-gcp/internal/auth"
	"snapmaster-gcp/internal/brokers/gcp"
	"snapmaster-gcp/internal/common/cache"
	"snapmaster-gcp/internal/common/logging"
	"snapmaster-gcp/internal/config"
	"snapmaster-gcp/internal/credentials"
	"snapmaster-gcp/internal/engine"
	"snapmaster-gcp/internal/handlers"
	"snapmaster-gcp/internal/redis"
	"snapmaster-gcp/internal/triggers"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// App holds all the application dependencies
type App struct {
	Config         *config.Config
	Logger         logging.Logger
	RedisClient    *redis.Client
	TokenCache     cache.Cache
	Resolver       *credentials.Resolver
	Actions        *actions.Service
	Backend        *gcp.Backend
	Engine         *engine.Client
	TriggerManager *triggers.Manager
	Verifier       auth.TokenVerifier
	JWT            *auth.JWTMiddleware
	Handlers       *handlers.Handlers
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "app"}),
	}

	if err := app.initializeRedis(); err != nil {
		// Redis is optional, just log the error
		app.Logger.Warn("Redis initialization failed, continuing without Redis",
			logging.Field{Key: "error", Value: err.Error()})
	}

	if err := app.initializeAuth(); err != nil {
		return nil, err
	}

	app.initializeActions()

	if err := app.initializeTriggers(); err != nil {
		return nil, err
	}

	app.initializeHandlers()

	return app, nil
}

// Shutdown waits for background webhook dispatches started before the
// server stopped accepting requests
func (app *App) Shutdown(ctx context.Context) error {
	if app.Handlers == nil {
		return nil
	}
	if err := app.Handlers.Drain(ctx); err != nil {
		app.Logger.Warn("Webhook dispatches still running at shutdown", logging.Field{Key: "error", Value: err.Error()})
		return err
	}
	app.Logger.Info("Webhook dispatches drained")
	return nil
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
