// Package config loads the provider's configuration from the environment.
//
// Values come from process environment variables, optionally seeded from a
// .env file by the caller (see app.Run). Load never fails: unparseable
// numbers and durations fall back to their defaults and are reported by
// Validate, together with every other problem, in a single error.
//
// Environment Variables:
//
// Application Settings:
//   - ENV: prod, dev or devhosted (default: prod). devhosted runs the prod
//     configuration against the dev account.
//   - PORT: Server port (default: 8080 for prod, 8081 otherwise)
//   - LOG_LEVEL: debug, info, warn or error (default: info)
//   - LOG_FILE: Append logs to this file instead of stdout
//   - SHUTDOWN_TIMEOUT: Grace period for in-flight work on shutdown (default: 30s)
//
// Engine:
//   - ENGINE_URL: Snap engine base URL (required)
//   - PROVIDER_URL: Public base URL of this provider, used in push endpoints (required)
//   - AUTH0_DOMAIN, AUTH0_CLIENT_ID, AUTH0_CLIENT_SECRET: Service identity (required)
//   - AUTH0_AUDIENCE: Audience of the service token
//   - SERVICE_TOKEN_CACHE_TTL: Reuse minted service tokens for this long (default: 0, mint per call)
//   - JWT_SECRET or JWT_PUBLIC_KEY: Verifies engine requests (HS256 or RS256)
//   - JWT_AUDIENCE, JWT_ISSUER: Optional claims required on engine requests
//
// Actions:
//   - SCRIPT_DIR: Directory holding the action scripts (default: ./scripts)
//   - MAX_CONCURRENT_ACTIONS: Scripts allowed to run at once (default: 4)
//   - ACTION_TIMEOUT: Per-script time limit (default: 10m)
//
// Timeouts:
//   - BACKEND_TIMEOUT: Per Pub/Sub admin call (default: 30s)
//   - TOKEN_TIMEOUT: Per service-token request (default: 10s)
//   - ENGINE_TIMEOUT: Per engine callback (default: 30s)
//
// Webhooks:
//   - WEBHOOK_AUDIENCE: Audience of push ID tokens (default: none checked)
//   - WEBHOOK_SERVICE_ACCOUNT: Expected signer of push ID tokens
//   - WEBHOOK_RATE_LIMIT: Requests per second per client IP, 0 disables (default: 20)
//   - WEBHOOK_RATE_BURST: Burst per client IP (default: 40)
//
// Redis (optional, shares the token cache and rate limits across replicas):
//   - REDIS_ADDRESS: host:port, empty disables Redis
//   - REDIS_PASSWORD
//   - REDIS_DB: 0-15 (default: 0)
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "snapmaster-gcp/internal/common/errors"
	"snapmaster-gcp/internal/common/validation"
)

const (
	EnvProd      = "prod"
	EnvDev       = "dev"
	EnvDevHosted = "devhosted"
)

// Config is built once at startup and treated as read-only afterwards.
// JSON names are the environment variable names so that validation
// messages point at the variable to fix.
type Config struct {
	// Env is the deployment name from ENV
	Env string `json:"ENV" validate:"oneof=prod dev devhosted"`
	// Configuration selects prod or dev behaviour; devhosted runs prod
	Configuration string `json:"-"`
	// Account selects which GCP account the deployment belongs to; devhosted uses dev
	Account string `json:"-"`

	Port            int           `json:"PORT" validate:"min=1,max=65535"`
	LogLevel        string        `json:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFile         string        `json:"LOG_FILE"`
	ShutdownTimeout time.Duration `json:"SHUTDOWN_TIMEOUT" validate:"gt=0"`

	EngineURL   string `json:"ENGINE_URL" validate:"required,url"`
	ProviderURL string `json:"PROVIDER_URL" validate:"required,url"`

	ScriptDir            string        `json:"SCRIPT_DIR" validate:"required"`
	MaxConcurrentActions int64         `json:"MAX_CONCURRENT_ACTIONS" validate:"min=1"`
	ActionTimeout        time.Duration `json:"ACTION_TIMEOUT" validate:"gt=0"`

	BackendTimeout time.Duration `json:"BACKEND_TIMEOUT" validate:"gt=0"`
	TokenTimeout   time.Duration `json:"TOKEN_TIMEOUT" validate:"gt=0"`
	EngineTimeout  time.Duration `json:"ENGINE_TIMEOUT" validate:"gt=0"`

	Auth0Domain          string        `json:"AUTH0_DOMAIN" validate:"required"`
	Auth0ClientID        string        `json:"AUTH0_CLIENT_ID" validate:"required"`
	Auth0ClientSecret    string        `json:"AUTH0_CLIENT_SECRET" validate:"required"`
	Auth0Audience        string        `json:"AUTH0_AUDIENCE"`
	ServiceTokenCacheTTL time.Duration `json:"SERVICE_TOKEN_CACHE_TTL"`

	JWTSecret    string `json:"JWT_SECRET"`
	JWTPublicKey string `json:"JWT_PUBLIC_KEY"`
	JWTAudience  string `json:"JWT_AUDIENCE"`
	JWTIssuer    string `json:"JWT_ISSUER"`

	WebhookAudience       string `json:"WEBHOOK_AUDIENCE"`
	WebhookServiceAccount string `json:"WEBHOOK_SERVICE_ACCOUNT" validate:"omitempty,email"`
	WebhookRateLimit      int    `json:"WEBHOOK_RATE_LIMIT" validate:"min=0"`
	WebhookRateBurst      int    `json:"WEBHOOK_RATE_BURST" validate:"min=0"`

	RedisAddress  string `json:"REDIS_ADDRESS"`
	RedisPassword string `json:"REDIS_PASSWORD"`
	RedisDB       int    `json:"REDIS_DB" validate:"min=0,max=15"`

	parseErrors []string
}

// Load reads the configuration from the environment. Call Validate before use.
func Load() *Config {
	c := &Config{}

	c.Env = strings.ToLower(getEnv("ENV", EnvProd))
	c.Configuration = c.Env
	c.Account = c.Env
	if c.Env == EnvDevHosted {
		c.Configuration = EnvProd
		c.Account = EnvDev
	}

	defaultPort := 8081
	if c.Configuration == EnvProd {
		defaultPort = 8080
	}

	c.Port = c.getInt("PORT", defaultPort)
	c.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	c.LogFile = getEnv("LOG_FILE", "")
	c.ShutdownTimeout = c.getDuration("SHUTDOWN_TIMEOUT", 30*time.Second)

	c.EngineURL = strings.TrimSuffix(getEnv("ENGINE_URL", ""), "/")
	c.ProviderURL = strings.TrimSuffix(getEnv("PROVIDER_URL", ""), "/")

	c.ScriptDir = getEnv("SCRIPT_DIR", "./scripts")
	c.MaxConcurrentActions = int64(c.getInt("MAX_CONCURRENT_ACTIONS", 4))
	c.ActionTimeout = c.getDuration("ACTION_TIMEOUT", 10*time.Minute)

	c.BackendTimeout = c.getDuration("BACKEND_TIMEOUT", 30*time.Second)
	c.TokenTimeout = c.getDuration("TOKEN_TIMEOUT", 10*time.Second)
	c.EngineTimeout = c.getDuration("ENGINE_TIMEOUT", 30*time.Second)

	c.Auth0Domain = getEnv("AUTH0_DOMAIN", "")
	c.Auth0ClientID = getEnv("AUTH0_CLIENT_ID", "")
	c.Auth0ClientSecret = getEnv("AUTH0_CLIENT_SECRET", "")
	c.Auth0Audience = getEnv("AUTH0_AUDIENCE", "")
	c.ServiceTokenCacheTTL = c.getDuration("SERVICE_TOKEN_CACHE_TTL", 0)

	c.JWTSecret = getEnv("JWT_SECRET", "")
	c.JWTPublicKey = getEnv("JWT_PUBLIC_KEY", "")
	c.JWTAudience = getEnv("JWT_AUDIENCE", "")
	c.JWTIssuer = getEnv("JWT_ISSUER", "")

	c.WebhookAudience = getEnv("WEBHOOK_AUDIENCE", "")
	c.WebhookServiceAccount = getEnv("WEBHOOK_SERVICE_ACCOUNT", "")
	c.WebhookRateLimit = c.getInt("WEBHOOK_RATE_LIMIT", 20)
	c.WebhookRateBurst = c.getInt("WEBHOOK_RATE_BURST", 40)

	c.RedisAddress = getEnv("REDIS_ADDRESS", "")
	c.RedisPassword = getEnv("REDIS_PASSWORD", "")
	c.RedisDB = c.getInt("REDIS_DB", 0)

	return c
}

// Validate reports every configuration problem at once as a config AppError
func (c *Config) Validate() error {
	var problems []string
	problems = append(problems, c.parseErrors...)

	if err := validation.All(c); err != nil {
		problems = append(problems, strings.TrimPrefix(apperrors.Message(err), "invalid configuration: "))
	}

	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		problems = append(problems, "JWT_SECRET must be at least 32 characters long")
	}
	if c.ServiceTokenCacheTTL < 0 {
		problems = append(problems, "SERVICE_TOKEN_CACHE_TTL must not be negative")
	}

	if len(problems) > 0 {
		return apperrors.ConfigError(fmt.Sprintf("invalid configuration: %s", strings.Join(problems, "; ")))
	}
	return nil
}

// IsProduction reports whether the prod configuration is in effect
func (c *Config) IsProduction() bool {
	return c.Configuration == EnvProd
}

// JWTEnabled reports whether engine requests are authenticated
func (c *Config) JWTEnabled() bool {
	return c.JWTSecret != "" || c.JWTPublicKey != ""
}

// RedisEnabled reports whether a Redis address is configured
func (c *Config) RedisEnabled() bool {
	return c.RedisAddress != ""
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) getInt(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("%s must be an integer", key))
		return defaultValue
	}
	return parsed
}

// getDuration accepts Go durations ("90s", "5m") and bare seconds ("90")
func (c *Config) getDuration(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("%s must be a duration", key))
		return defaultValue
	}
	return parsed
}

