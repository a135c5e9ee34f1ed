package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"snapmaster-gcp/internal/common/errors"
	"snapmaster-gcp/internal/common/logging"
)

// JWTConfig configures verification of the engine's bearer tokens. Exactly
// one of Secret (HS256) or PublicKeyPEM (RS256) should be set.
type JWTConfig struct {
	Secret       string
	PublicKeyPEM string
	Audience     string
	Issuer       string
	Leeway       time.Duration
}

// Enabled reports whether any verification key is configured
func (c JWTConfig) Enabled() bool {
	return c.Secret != "" || c.PublicKeyPEM != ""
}

// JWTMiddleware rejects provider API requests without a valid engine JWT
type JWTMiddleware struct {
	keyFunc jwt.Keyfunc
	parser  *jwt.Parser
	enabled bool
	logger  logging.Logger
}

// NewJWTMiddleware builds the middleware. With no key configured every
// request passes, which is only acceptable in development.
func NewJWTMiddleware(config JWTConfig, logger logging.Logger) (*JWTMiddleware, error) {
	m := &JWTMiddleware{enabled: config.Enabled(), logger: logger}
	if !m.enabled {
		logger.Warn("JWT verification disabled: no JWT_SECRET or JWT_PUBLIC_KEY configured")
		return m, nil
	}

	opts := []jwt.ParserOption{jwt.WithExpirationRequired(), jwt.WithLeeway(config.Leeway)}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}

	if config.PublicKeyPEM != "" {
		publicKey, err := jwt.ParseRSAPublicKeyFromPEM([]byte(config.PublicKeyPEM))
		if err != nil {
			return nil, errors.ConfigError("JWT_PUBLIC_KEY is not a valid RSA public key")
		}
		m.keyFunc = func(*jwt.Token) (interface{}, error) { return publicKey, nil }
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	} else {
		secret := []byte(config.Secret)
		m.keyFunc = func(*jwt.Token) (interface{}, error) { return secret, nil }
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	}

	m.parser = jwt.NewParser(opts...)
	return m, nil
}

// Middleware wraps next with JWT verification
func (m *JWTMiddleware) Middleware(next http.Handler) http.Handler {
	if !m.enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := ExtractBearer(r)
		if err != nil {
			m.reject(w, r, errors.Message(err))
			return
		}

		if _, err := m.parser.Parse(token, m.keyFunc); err != nil {
			m.reject(w, r, err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *JWTMiddleware) reject(w http.ResponseWriter, r *http.Request, reason string) {
	m.logger.WithContext(r.Context()).Warn("Rejected unauthenticated request",
		logging.Field{Key: "path", Value: r.URL.Path},
		logging.Field{Key: "reason", Value: reason},
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": "unauthorized"}); err != nil {
		m.logger.Warn("Failed to encode response", logging.Field{Key: "error", Value: err.Error()})
	}
}
