package handlers

import (
	"net/http"
	"sort"
	"time"
)

// HealthCheck reports service health
// @Summary Health check
// @Description Reports service health and the status of optional dependencies
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   h.options.Version,
	}

	names := make([]string, 0, len(h.options.Dependencies))
	for name := range h.options.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	code := http.StatusOK
	for _, name := range names {
		if err := h.options.Dependencies[name].Health(); err != nil {
			status[name+"_status"] = "unhealthy"
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		status[name+"_status"] = "healthy"
	}

	h.writeJSON(w, code, status)
}
