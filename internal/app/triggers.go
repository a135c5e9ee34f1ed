package app

import (
	"snapmaster-gcp/internal/auth"
	"snapmaster-gcp/internal/brokers/gcp"
	"snapmaster-gcp/internal/common/logging"
	"snapmaster-gcp/internal/engine"
	"snapmaster-gcp/internal/triggers"
)

func (app *App) initializeTriggers() error {
	backendConfig := gcp.DefaultConfig()
	backendConfig.Timeout = app.Config.BackendTimeout

	backend, err := gcp.NewBackend(backendConfig, app.Logger.WithFields(logging.Field{Key: "component", Value: "pubsub"}))
	if err != nil {
		return err
	}
	app.Backend = backend

	tokens := auth.NewAuth0TokenSource(auth.Auth0Config{
		Domain:       app.Config.Auth0Domain,
		ClientID:     app.Config.Auth0ClientID,
		ClientSecret: app.Config.Auth0ClientSecret,
		Audience:     app.Config.Auth0Audience,
		Timeout:      app.Config.TokenTimeout,
		CacheTTL:     app.Config.ServiceTokenCacheTTL,
	}, app.TokenCache, app.Logger.WithFields(logging.Field{Key: "component", Value: "service_token"}))

	app.Engine = engine.NewClient(engine.Config{
		BaseURL: app.Config.EngineURL,
		Timeout: app.Config.EngineTimeout,
	}, tokens, app.Logger.WithFields(logging.Field{Key: "component", Value: "engine"}))

	app.TriggerManager = triggers.NewManager(triggers.Config{
		ProviderURL:     app.Config.ProviderURL,
		WebhookAudience: app.Config.WebhookAudience,
	}, app.Resolver, backend, app.Engine, app.Logger)

	app.Logger.Info("Triggers: Ready",
		logging.Field{Key: "provider_url", Value: app.Config.ProviderURL},
		logging.Field{Key: "engine_url", Value: app.Config.EngineURL},
	)
	return nil
}
