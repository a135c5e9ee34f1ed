package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/gorilla/mux"

	"snapmaster-gcp/internal/auth"
	"snapmaster-gcp/internal/common/logging"
	"snapmaster-gcp/internal/triggers"
)

// HandleWebhook receives a Pub/Sub push delivery for an active snap
// @Summary Pub/Sub push webhook
// @Description Verifies the Google-signed ID token, acknowledges the delivery and forwards it to the engine in the background
// @Tags webhooks
// @Accept json
// @Param userId path string true "User ID"
// @Param activeSnapId path string true "Active snap ID"
// @Param payload body object true "Pub/Sub push message"
// @Success 200 {string} string "OK"
// @Failure 401 {string} string "Unauthorized"
// @Failure 500 {string} string "Internal Server Error"
// @Router /gcp/webhooks/{userId}/{activeSnapId} [post]
func (h *Handlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, activeSnapID := vars["userId"], vars["activeSnapId"]
	ctx := logging.ContextWithSnap(r.Context(), userID, activeSnapID)
	logger := h.logger.WithContext(ctx)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Webhook handler panicked", fmt.Errorf("%v", rec),
				logging.Field{Key: "stack", Value: string(debug.Stack())},
			)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}()

	token, err := auth.ExtractBearer(r)
	if err != nil {
		logger.Warn("Webhook rejected", logging.Field{Key: "reason", Value: err.Error()})
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	if err := h.verifier.Verify(ctx, token); err != nil {
		logger.Warn("Webhook token verification failed", logging.Field{Key: "reason", Value: err.Error()})
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	payload, err := readPayload(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		logger.Error("Could not parse webhook body", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.dispatch(ctx, userID, activeSnapID, payload)

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		logger.Warn("Failed to write webhook response", logging.Field{Key: "error", Value: err.Error()})
	}
}

// dispatch forwards a delivery to the engine without holding the response.
// Request cancellation does not stop it; DispatchTimeout does.
func (h *Handlers) dispatch(ctx context.Context, userID, activeSnapID string, payload map[string]interface{}) {
	ctx = context.WithoutCancel(ctx)
	logger := h.logger.WithContext(ctx)

	h.dispatches.Add(1)
	go func() {
		defer h.dispatches.Done()
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("Webhook dispatch panicked", fmt.Errorf("%v", rec))
			}
		}()

		ctx, cancel := context.WithTimeout(ctx, h.options.DispatchTimeout)
		defer cancel()

		rv := h.triggers.HandleTrigger(ctx, userID, activeSnapID, triggers.EventPubSub, payload)
		if !rv.IsSuccess() {
			logger.Warn("Webhook dispatch failed", logging.Field{Key: "message", Value: rv.Message})
			return
		}
		logger.Info("Webhook dispatched")
	}()
}

// readPayload parses a body that must be a single JSON object
func readPayload(body io.Reader) (map[string]interface{}, error) {
	var payload map[string]interface{}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid webhook body: %w", err)
	}
	if payload == nil {
		return nil, fmt.Errorf("invalid webhook body: expected a JSON object")
	}
	return payload, nil
}
