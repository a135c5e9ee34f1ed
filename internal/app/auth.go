package app

import (
	"time"

	"snapmaster-gcp/internal/auth"
	"snapmaster-gcp/internal/common/cache"
	"snapmaster-gcp/internal/common/logging"
)

func (app *App) initializeAuth() error {
	jwtMiddleware, err := auth.NewJWTMiddleware(auth.JWTConfig{
		Secret:       app.Config.JWTSecret,
		PublicKeyPEM: app.Config.JWTPublicKey,
		Audience:     app.Config.JWTAudience,
		Issuer:       app.Config.JWTIssuer,
		Leeway:       30 * time.Second,
	}, app.Logger.WithFields(logging.Field{Key: "component", Value: "jwt"}))
	if err != nil {
		return err
	}
	app.JWT = jwtMiddleware
	if !app.Config.JWTEnabled() && app.Config.IsProduction() {
		app.Logger.Warn("Engine requests are not authenticated in a production configuration")
	}

	app.Verifier = auth.NewIDTokenVerifier(auth.IDTokenConfig{
		Audience:            app.Config.WebhookAudience,
		ServiceAccountEmail: app.Config.WebhookServiceAccount,
		Timeout:             app.Config.TokenTimeout,
	}, app.Logger.WithFields(logging.Field{Key: "component", Value: "webhook_verifier"}))

	return app.initializeTokenCache()
}

// initializeTokenCache builds the service-token cache when caching is on.
// Redis shares minted tokens across replicas; otherwise each instance keeps
// its own.
func (app *App) initializeTokenCache() error {
	if app.Config.ServiceTokenCacheTTL <= 0 {
		app.Logger.Info("Service token cache: Disabled (minting a token per engine call)")
		return nil
	}

	cacheConfig := cache.DefaultConfig()
	cacheConfig.TTL = app.Config.ServiceTokenCacheTTL
	if app.RedisClient != nil {
		cacheConfig.Type = cache.TypeRedis
		cacheConfig.RedisClient = app.RedisClient.Raw()
	}

	tokenCache, err := cache.New(cacheConfig)
	if err != nil {
		return err
	}
	app.TokenCache = tokenCache
	app.Logger.Info("Service token cache: Enabled",
		logging.Field{Key: "type", Value: string(cacheConfig.Type)},
		logging.Field{Key: "ttl", Value: cacheConfig.TTL.String()},
	)
	return nil
}
