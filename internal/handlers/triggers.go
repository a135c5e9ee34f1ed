package handlers

import (
	"net/http"

	"snapmaster-gcp/internal/models"
)

// CreateTrigger registers a Pub/Sub push subscription for an active snap
// @Summary Create trigger
// @Description Creates the topic if needed and a push subscription that delivers to this provider
// @Tags triggers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.TriggerRequest true "Trigger request"
// @Success 200 {object} models.ReturnValue
// @Failure 400 {object} models.ReturnValue
// @Failure 401 {object} models.ReturnValue
// @Router /createTrigger [post]
func (h *Handlers) CreateTrigger(w http.ResponseWriter, r *http.Request) {
	var req models.TriggerRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	h.writeResult(w, h.triggers.CreateTrigger(r.Context(), &req))
}

// DeleteTrigger removes the subscription recorded in triggerData
// @Summary Delete trigger
// @Description Deletes the push subscription identified by triggerData.id
// @Tags triggers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.TriggerRequest true "Trigger request with triggerData"
// @Success 200 {object} models.ReturnValue
// @Failure 400 {object} models.ReturnValue
// @Failure 401 {object} models.ReturnValue
// @Router /deleteTrigger [post]
func (h *Handlers) DeleteTrigger(w http.ResponseWriter, r *http.Request) {
	var req models.TriggerRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	h.writeResult(w, h.triggers.DeleteTrigger(r.Context(), &req))
}
