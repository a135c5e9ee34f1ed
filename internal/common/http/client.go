package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"snapmaster-gcp/internal/circuitbreaker"
	"snapmaster-gcp/internal/common/errors"
)

// maxResponseBody caps how much of a downstream response is read
const maxResponseBody = 1 << 20

// ClientConfig holds HTTP client configuration
type ClientConfig struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// DefaultClientConfig returns default HTTP client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:             30 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// ClientOption is a function that modifies ClientConfig
type ClientOption func(*ClientConfig)

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// NewHTTPClient creates a new HTTP client with the given options
func NewHTTPClient(opts ...ClientOption) *http.Client {
	cfg := DefaultClientConfig()

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
		},
	}
}

// Response represents an HTTP response with parsed body
type Response struct {
	StatusCode int
	Body       interface{} // parsed JSON, or the raw string when not JSON
	Duration   time.Duration
}

// HTTPClientWrapper sends JSON requests through an optional circuit breaker.
// It never retries.
type HTTPClientWrapper struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.GoBreakerAdapter
}

// NewHTTPClientWrapper creates a wrapped HTTP client
func NewHTTPClientWrapper(opts ...ClientOption) *HTTPClientWrapper {
	return &HTTPClientWrapper{client: NewHTTPClient(opts...)}
}

// WithCircuitBreaker routes every request through breaker
func (w *HTTPClientWrapper) WithCircuitBreaker(breaker *circuitbreaker.GoBreakerAdapter) *HTTPClientWrapper {
	w.circuitBreaker = breaker
	return w
}

// PostJSON posts body as JSON with an optional bearer token. Non-2xx
// responses are returned together with an error: 5xx as a connection error,
// anything else as a validation error so it does not trip the breaker.
func (w *HTTPClientWrapper) PostJSON(ctx context.Context, url string, body interface{}, bearerToken string) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.InternalError("failed to encode request body", err)
	}

	var response *Response
	call := func() error {
		var callErr error
		response, callErr = w.post(ctx, url, payload, bearerToken)
		return callErr
	}

	if w.circuitBreaker != nil {
		err = w.circuitBreaker.Execute(ctx, call)
	} else {
		err = call()
	}
	return response, err
}

func (w *HTTPClientWrapper) post(ctx context.Context, url string, payload []byte, bearerToken string) (*Response, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.InternalError("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, errors.FromContext(ctx, "request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, errors.ConnectionError("failed to read response body", err)
	}

	response := &Response{
		StatusCode: resp.StatusCode,
		Body:       parseResponseBody(raw),
		Duration:   time.Since(start),
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return response, nil
	case resp.StatusCode >= 500:
		return response, errors.ConnectionError(fmt.Sprintf("HTTP %d", resp.StatusCode), nil)
	default:
		return response, errors.ValidationError(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(raw)))
	}
}

// parseResponseBody attempts to parse response as JSON, falls back to string
func parseResponseBody(body []byte) interface{} {
	if len(body) == 0 {
		return ""
	}

	var jsonResponse interface{}
	if err := json.Unmarshal(body, &jsonResponse); err == nil {
		return jsonResponse
	}
	return string(body)
}
