package app

import (
	"net/http"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	"snapmaster-gcp/internal/common/logging"
	"snapmaster-gcp/internal/common/ratelimit"
	"snapmaster-gcp/internal/handlers"
	"snapmaster-gcp/internal/middleware"
)

// SetupRoutes configures all HTTP routes for the application
func SetupRoutes(router *mux.Router, h *handlers.Handlers, authMiddleware func(http.Handler) http.Handler, rateLimiter ratelimit.Limiter, logger logging.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.Logging(logger))
	router.Use(middleware.Recover(logger))

	// Health check (no auth required)
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	// Swagger UI (no auth required)
	router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	// Pub/Sub push endpoint: authenticated inside the handler with a
	// Google-signed ID token, rate limited per client IP
	webhooks := router.PathPrefix("/gcp/webhooks").Subrouter()
	if rateLimiter != nil {
		webhooks.Use(ratelimit.HTTPMiddleware(rateLimiter, ratelimit.IPKey))
	}
	webhooks.HandleFunc("/{userId}/{activeSnapId}", h.HandleWebhook).Methods(http.MethodPost)

	// Engine-facing operations require the engine's JWT
	protected := router.NewRoute().Subrouter()
	protected.Use(authMiddleware)
	protected.HandleFunc("/invokeAction", h.InvokeAction).Methods(http.MethodPost)
	protected.HandleFunc("/createTrigger", h.CreateTrigger).Methods(http.MethodPost)
	protected.HandleFunc("/deleteTrigger", h.DeleteTrigger).Methods(http.MethodPost)
}
