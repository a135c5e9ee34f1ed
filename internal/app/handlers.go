package app

import (
	"snapmaster-gcp/internal/handlers"
)

func (app *App) initializeHandlers() {
	options := handlers.Options{
		// A dispatch mints a token and then calls the engine
		DispatchTimeout: app.Config.TokenTimeout + app.Config.EngineTimeout,
		Version:         Version,
	}
	if app.RedisClient != nil {
		options.Dependencies = map[string]handlers.HealthChecker{"redis": app.RedisClient}
	}

	app.Handlers = handlers.New(app.Actions, app.TriggerManager, app.Verifier, options, app.Logger)
}
