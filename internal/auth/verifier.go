package auth

import (
	"context"
	"time"

	"google.golang.org/api/idtoken"

	"snapmaster-gcp/internal/common/errors"
	"snapmaster-gcp/internal/common/logging"
)

// TokenVerifier checks a bearer token presented to the webhook
type TokenVerifier interface {
	Verify(ctx context.Context, token string) error
}

// ValidateFunc validates a Google-signed ID token
type ValidateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// IDTokenConfig configures Google ID-token verification. An empty Audience
// skips the audience check; an empty ServiceAccountEmail accepts any
// Google-signed token.
type IDTokenConfig struct {
	Audience            string
	ServiceAccountEmail string
	Timeout             time.Duration
}

// IDTokenVerifier verifies the OIDC tokens Pub/Sub attaches to push requests
type IDTokenVerifier struct {
	config   IDTokenConfig
	validate ValidateFunc
	logger   logging.Logger
}

// NewIDTokenVerifier creates a verifier backed by Google's published keys
func NewIDTokenVerifier(config IDTokenConfig, logger logging.Logger) *IDTokenVerifier {
	return NewIDTokenVerifierWithValidator(config, idtoken.Validate, logger)
}

// NewIDTokenVerifierWithValidator creates a verifier with a custom validator
func NewIDTokenVerifierWithValidator(config IDTokenConfig, validate ValidateFunc, logger logging.Logger) *IDTokenVerifier {
	return &IDTokenVerifier{config: config, validate: validate, logger: logger}
}

// Verify validates token's signature, expiry and, when configured, its
// audience and the email of the service account that minted it
func (v *IDTokenVerifier) Verify(ctx context.Context, token string) error {
	if v.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.config.Timeout)
		defer cancel()
	}

	payload, err := v.validate(ctx, token, v.config.Audience)
	if err != nil {
		v.logger.WithContext(ctx).Warn("ID token rejected", logging.Field{Key: "reason", Value: err.Error()})
		return errors.AuthError("invalid ID token")
	}

	if v.config.ServiceAccountEmail == "" {
		return nil
	}

	email, _ := payload.Claims["email"].(string)
	verified, _ := payload.Claims["email_verified"].(bool)
	if email != v.config.ServiceAccountEmail || !verified {
		v.logger.WithContext(ctx).Warn("ID token minted for unexpected service account",
			logging.Field{Key: "email", Value: email},
		)
		return errors.AuthError("ID token service account mismatch")
	}
	return nil
}
