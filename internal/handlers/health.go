package handlers

import (
	"net/http"
)

// HealthHandler answers liveness probes. It reports process health only;
// the reservation store and session backend are not consulted, so a probe
// never holds a database connection.
type HealthHandler struct{}

// NewHealthHandler creates a new health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Health handles GET /health - liveness probe, no auth required
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "inventory-reservation-api",
	})
}
