package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "snapmaster-gcp/internal/common/errors"
)

var allVars = []string{
	"ENV", "PORT", "LOG_LEVEL", "LOG_FILE", "SHUTDOWN_TIMEOUT", "ENGINE_URL", "PROVIDER_URL",
	"SCRIPT_DIR", "MAX_CONCURRENT_ACTIONS", "ACTION_TIMEOUT", "BACKEND_TIMEOUT", "TOKEN_TIMEOUT",
	"ENGINE_TIMEOUT", "AUTH0_DOMAIN", "AUTH0_CLIENT_ID", "AUTH0_CLIENT_SECRET", "AUTH0_AUDIENCE",
	"SERVICE_TOKEN_CACHE_TTL", "JWT_SECRET", "JWT_PUBLIC_KEY", "JWT_AUDIENCE", "JWT_ISSUER",
	"WEBHOOK_AUDIENCE", "WEBHOOK_SERVICE_ACCOUNT", "WEBHOOK_RATE_LIMIT", "WEBHOOK_RATE_BURST",
	"REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_DB",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allVars {
		t.Setenv(key, "")
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ENGINE_URL", "https://engine.snapmaster.io/")
	t.Setenv("PROVIDER_URL", "https://gcp.snapmaster.io")
	t.Setenv("AUTH0_DOMAIN", "snapmaster.auth0.com")
	t.Setenv("AUTH0_CLIENT_ID", "client")
	t.Setenv("AUTH0_CLIENT_SECRET", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	c := Load()

	assert.Equal(t, EnvProd, c.Env)
	assert.Equal(t, EnvProd, c.Configuration)
	assert.Equal(t, EnvProd, c.Account)
	assert.True(t, c.IsProduction())
	assert.Equal(t, 8080, c.Port)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "./scripts", c.ScriptDir)
	assert.Equal(t, int64(4), c.MaxConcurrentActions)
	assert.Equal(t, 10*time.Minute, c.ActionTimeout)
	assert.Equal(t, 30*time.Second, c.BackendTimeout)
	assert.Equal(t, 10*time.Second, c.TokenTimeout)
	assert.Equal(t, 30*time.Second, c.EngineTimeout)
	assert.Zero(t, c.ServiceTokenCacheTTL)
	assert.Equal(t, 20, c.WebhookRateLimit)
	assert.Equal(t, 40, c.WebhookRateBurst)
	assert.False(t, c.RedisEnabled())
	assert.False(t, c.JWTEnabled())
}

func TestLoad_Environments(t *testing.T) {
	tests := []struct {
		env               string
		wantConfiguration string
		wantAccount       string
		wantPort          int
	}{
		{"prod", EnvProd, EnvProd, 8080},
		{"dev", EnvDev, EnvDev, 8081},
		{"devhosted", EnvProd, EnvDev, 8080},
		{"DEV", EnvDev, EnvDev, 8081},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("ENV", tt.env)

			c := Load()
			assert.Equal(t, tt.wantConfiguration, c.Configuration)
			assert.Equal(t, tt.wantAccount, c.Account)
			assert.Equal(t, tt.wantPort, c.Port)
		})
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	setRequired(t)
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("ACTION_TIMEOUT", "90")
	t.Setenv("ENGINE_TIMEOUT", "5s")
	t.Setenv("SERVICE_TOKEN_CACHE_TTL", "5m")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")
	t.Setenv("JWT_PUBLIC_KEY", "-----BEGIN PUBLIC KEY-----")

	c := Load()
	require.NoError(t, c.Validate())

	assert.Equal(t, 9000, c.Port)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, 90*time.Second, c.ActionTimeout)
	assert.Equal(t, 5*time.Second, c.EngineTimeout)
	assert.Equal(t, 5*time.Minute, c.ServiceTokenCacheTTL)
	assert.Equal(t, "https://engine.snapmaster.io", c.EngineURL)
	assert.True(t, c.RedisEnabled())
	assert.True(t, c.JWTEnabled())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr []string
	}{
		{
			name: "valid",
		},
		{
			name:    "missing engine url",
			env:     map[string]string{"ENGINE_URL": ""},
			wantErr: []string{"ENGINE_URL is required"},
		},
		{
			name:    "bad provider url",
			env:     map[string]string{"PROVIDER_URL": "not a url"},
			wantErr: []string{"PROVIDER_URL must be a valid URL"},
		},
		{
			name:    "unknown env",
			env:     map[string]string{"ENV": "staging"},
			wantErr: []string{"ENV must be one of: prod dev devhosted"},
		},
		{
			name:    "port out of range",
			env:     map[string]string{"PORT": "70000"},
			wantErr: []string{"PORT must be at most 65535"},
		},
		{
			name:    "unparseable values",
			env:     map[string]string{"PORT": "http", "ACTION_TIMEOUT": "soon"},
			wantErr: []string{"PORT must be an integer", "ACTION_TIMEOUT must be a duration"},
		},
		{
			name:    "no concurrency",
			env:     map[string]string{"MAX_CONCURRENT_ACTIONS": "0"},
			wantErr: []string{"MAX_CONCURRENT_ACTIONS must be at least 1"},
		},
		{
			name:    "short jwt secret",
			env:     map[string]string{"JWT_SECRET": "short"},
			wantErr: []string{"JWT_SECRET must be at least 32 characters long"},
		},
		{
			name:    "bad webhook signer",
			env:     map[string]string{"WEBHOOK_SERVICE_ACCOUNT": "pubsub-pusher"},
			wantErr: []string{"WEBHOOK_SERVICE_ACCOUNT must be a valid email address"},
		},
		{
			name: "reports every problem",
			env: map[string]string{
				"AUTH0_DOMAIN":    "",
				"AUTH0_CLIENT_ID": "",
				"REDIS_DB":        "16",
			},
			wantErr: []string{"AUTH0_DOMAIN is required", "AUTH0_CLIENT_ID is required", "REDIS_DB must be at most 15"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			err := Load().Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
