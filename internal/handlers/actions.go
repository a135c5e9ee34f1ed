package handlers

import (
	"net/http"

	"snapmaster-gcp/internal/models"
)

// InvokeAction runs the action named in param.action
// @Summary Invoke action
// @Description Runs a build or deploy action script with the caller's service-account key
// @Tags actions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ActionRequest true "Action request"
// @Success 200 {object} models.ReturnValue
// @Failure 400 {object} models.ReturnValue
// @Failure 401 {object} models.ReturnValue
// @Router /invokeAction [post]
func (h *Handlers) InvokeAction(w http.ResponseWriter, r *http.Request) {
	var req models.ActionRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	h.writeResult(w, h.actions.InvokeAction(r.Context(), &req))
}
