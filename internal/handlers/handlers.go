// Package handlers exposes the provider's HTTP surface: the engine-facing
// action and trigger operations, and the Pub/Sub push webhook.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"snapmaster-gcp/internal/auth"
	"snapmaster-gcp/internal/common/logging"
	"snapmaster-gcp/internal/models"
)

// maxBodyBytes bounds every request body the provider reads
const maxBodyBytes = 10 << 20

// ActionInvoker runs actions on behalf of the engine
type ActionInvoker interface {
	InvokeAction(ctx context.Context, req *models.ActionRequest) models.ReturnValue
}

// TriggerService manages trigger lifecycles and fires triggers
type TriggerService interface {
	CreateTrigger(ctx context.Context, req *models.TriggerRequest) models.ReturnValue
	DeleteTrigger(ctx context.Context, req *models.TriggerRequest) models.ReturnValue
	HandleTrigger(ctx context.Context, userID, activeSnapID, event string, payload map[string]interface{}) models.ReturnValue
}

// HealthChecker reports the health of an optional dependency
type HealthChecker interface {
	Health() error
}

// Options configures Handlers
type Options struct {
	// DispatchTimeout bounds each background webhook dispatch
	DispatchTimeout time.Duration
	// Version is reported by the health endpoint
	Version string
	// Dependencies are probed by the health endpoint, keyed by name
	Dependencies map[string]HealthChecker
}

type Handlers struct {
	actions    ActionInvoker
	triggers   TriggerService
	verifier   auth.TokenVerifier
	options    Options
	logger     logging.Logger
	dispatches sync.WaitGroup
}

// New creates the HTTP handlers
func New(actions ActionInvoker, triggers TriggerService, verifier auth.TokenVerifier, options Options, logger logging.Logger) *Handlers {
	if options.DispatchTimeout <= 0 {
		options.DispatchTimeout = 30 * time.Second
	}
	return &Handlers{
		actions:  actions,
		triggers: triggers,
		verifier: verifier,
		options:  options,
		logger:   logger.WithFields(logging.Field{Key: "component", Value: "handlers"}),
	}
}

// Drain waits for in-flight webhook dispatches to finish or for ctx to end
func (h *Handlers) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.dispatches.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("Failed to encode response", logging.Field{Key: "error", Value: err.Error()})
	}
}

// writeResult sends a ReturnValue. Operation outcomes, including errors,
// travel in the envelope with a 200.
func (h *Handlers) writeResult(w http.ResponseWriter, rv models.ReturnValue) {
	h.writeJSON(w, http.StatusOK, rv)
}

// decodeBody parses a JSON request body into dst. A failure is answered with
// a 400 error ReturnValue and reported as false.
func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		h.logger.WithContext(r.Context()).Warn("Invalid request body",
			logging.Field{Key: "path", Value: r.URL.Path},
			logging.Field{Key: "error", Value: err.Error()},
		)
		h.writeJSON(w, http.StatusBadRequest, models.Failure("invalid request body", map[string]interface{}{"cause": err.Error()}))
		return false
	}
	return true
}
