// Package engine calls back into the snap engine when a trigger fires.
package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"snapmaster-gcp/internal/auth"
	"snapmaster-gcp/internal/circuitbreaker"
	commonhttp "snapmaster-gcp/internal/common/http"
	"snapmaster-gcp/internal/common/logging"
	"snapmaster-gcp/internal/models"
)

// ProviderName prefixes messages reported back to the engine
const ProviderName = "gcp"

// Config holds engine callback settings
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Dispatcher forwards a fired trigger to the engine
type Dispatcher interface {
	ExecuteSnap(ctx context.Context, userID, activeSnapID, event string, payload map[string]interface{}) (models.ReturnValue, error)
}

// Client posts trigger events to the engine's executesnap endpoint
type Client struct {
	baseURL string
	timeout time.Duration
	http    *commonhttp.HTTPClientWrapper
	tokens  auth.ServiceTokenSource
	logger  logging.Logger
}

// NewClient creates an engine client. Calls run through a circuit breaker
// and are never retried.
func NewClient(config Config, tokens auth.ServiceTokenSource, logger logging.Logger) *Client {
	breaker := circuitbreaker.NewGoBreaker("snap-engine", circuitbreaker.EngineConfig, logger)
	var opts []commonhttp.ClientOption
	if config.Timeout > 0 {
		opts = append(opts, commonhttp.WithTimeout(config.Timeout))
	}
	return &Client{
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		timeout: config.Timeout,
		http:    commonhttp.NewHTTPClientWrapper(opts...).WithCircuitBreaker(breaker),
		tokens:  tokens,
		logger:  logger,
	}
}

// ExecuteURL returns the executesnap URL for a user's active snap
func (c *Client) ExecuteURL(userID, activeSnapID string) string {
	return fmt.Sprintf("%s/executesnap/%s/%s", c.baseURL, url.PathEscape(userID), url.PathEscape(activeSnapID))
}

// ExecuteSnap posts {event, ...payload} to the engine with a freshly minted
// service token. Payload keys win over event on collision.
func (c *Client) ExecuteSnap(ctx context.Context, userID, activeSnapID, event string, payload map[string]interface{}) (models.ReturnValue, error) {
	logger := c.logger.WithContext(ctx)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		logger.Error("Could not retrieve service access token", err)
		return models.ReturnValue{}, err
	}

	body := make(map[string]interface{}, len(payload)+1)
	body["event"] = event
	for k, v := range payload {
		body[k] = v
	}

	target := c.ExecuteURL(userID, activeSnapID)
	resp, err := c.http.PostJSON(ctx, target, body, token)
	if err != nil {
		fields := []logging.Field{{Key: "url", Value: target}}
		if resp != nil {
			fields = append(fields, logging.Field{Key: "status", Value: resp.StatusCode})
			if resp.StatusCode == http.StatusUnauthorized {
				c.invalidateToken(ctx)
			}
		}
		logger.Error("Snap engine call failed", err, fields...)
		return models.ReturnValue{}, err
	}

	message := fmt.Sprintf("%s: invoked snap engine at %s", ProviderName, target)
	logger.Info("Invoked snap engine",
		logging.Field{Key: "url", Value: target},
		logging.Field{Key: "status", Value: resp.StatusCode},
		logging.Field{Key: "duration", Value: resp.Duration.String()},
	)
	return models.ReturnValue{Status: models.StatusSuccess, Message: message, Result: resp.Body}, nil
}

// invalidateToken drops a cached service token the engine refused
func (c *Client) invalidateToken(ctx context.Context) {
	if inv, ok := c.tokens.(auth.TokenInvalidator); ok {
		inv.Invalidate(ctx)
	}
}
