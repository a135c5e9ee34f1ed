package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"snapmaster-gcp/internal/common/cache"
	"snapmaster-gcp/internal/common/errors"
	"snapmaster-gcp/internal/common/logging"
)

// expiryMargin keeps cached tokens from being handed out right before they
// expire
const expiryMargin = 30 * time.Second

// ServiceTokenSource mints the bearer token the provider presents to the
// engine
type ServiceTokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenInvalidator is implemented by token sources that cache tokens and can
// drop one the engine rejected
type TokenInvalidator interface {
	Invalidate(ctx context.Context)
}

// Auth0Config configures the client-credentials grant against Auth0.
// CacheTTL of zero mints a fresh token for every call.
type Auth0Config struct {
	Domain       string
	ClientID     string
	ClientSecret string
	Audience     string
	Timeout      time.Duration
	CacheTTL     time.Duration
}

// TokenURL returns the Auth0 token endpoint for the configured domain
func (c Auth0Config) TokenURL() string {
	domain := strings.TrimSuffix(c.Domain, "/")
	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}
	return domain + "/oauth/token"
}

// Auth0TokenSource obtains service tokens with the client-credentials grant
type Auth0TokenSource struct {
	credentials clientcredentials.Config
	timeout     time.Duration
	cache       cache.Cache
	cacheTTL    time.Duration
	cacheKey    string
	logger      logging.Logger
}

// NewAuth0TokenSource creates a token source. tokenCache may be nil, which
// disables caching regardless of CacheTTL.
func NewAuth0TokenSource(config Auth0Config, tokenCache cache.Cache, logger logging.Logger) *Auth0TokenSource {
	return &Auth0TokenSource{
		credentials: clientcredentials.Config{
			ClientID:       config.ClientID,
			ClientSecret:   config.ClientSecret,
			TokenURL:       config.TokenURL(),
			EndpointParams: url.Values{"audience": {config.Audience}},
		},
		timeout:  config.Timeout,
		cache:    tokenCache,
		cacheTTL: config.CacheTTL,
		cacheKey: fmt.Sprintf("service-token:%s", config.ClientID),
		logger:   logger,
	}
}

func (s *Auth0TokenSource) cachingEnabled() bool {
	return s.cache != nil && s.cacheTTL > 0
}

// Token returns a service access token
func (s *Auth0TokenSource) Token(ctx context.Context) (string, error) {
	if s.cachingEnabled() {
		if cached, found := s.cache.Get(ctx, s.cacheKey); found {
			if token, ok := cached.(string); ok && token != "" {
				return token, nil
			}
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tok, err := s.credentials.Token(ctx)
	if err != nil {
		return "", errors.FromContext(ctx, "retrieve service access token", err)
	}
	if tok.AccessToken == "" {
		return "", errors.AuthError("token endpoint returned an empty access token")
	}

	if s.cachingEnabled() {
		ttl := s.cacheTTL
		if !tok.Expiry.IsZero() {
			if remaining := time.Until(tok.Expiry) - expiryMargin; remaining < ttl {
				ttl = remaining
			}
		}
		if ttl > 0 {
			if err := s.cache.Set(ctx, s.cacheKey, tok.AccessToken, ttl); err != nil {
				s.logger.Warn("Failed to cache service token", logging.Field{Key: "error", Value: err.Error()})
			}
		}
	}

	s.logger.Debug("Minted service access token", logging.Redacted("access_token", true))
	return tok.AccessToken, nil
}

// Invalidate drops the cached service token so the next call mints a new one
func (s *Auth0TokenSource) Invalidate(ctx context.Context) {
	if !s.cachingEnabled() {
		return
	}
	if err := s.cache.Delete(ctx, s.cacheKey); err != nil {
		s.logger.Warn("Failed to drop cached service token", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	s.logger.Debug("Dropped cached service token")
}
