package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"inventory-reservation-api/internal/models"
	"inventory-reservation-api/internal/reservation"
	"inventory-reservation-api/internal/store"
)

// AdminHandler handles admin-only endpoints
type AdminHandler struct {
	engine *reservation.Engine
	reader *store.Reader
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(engine *reservation.Engine, reader *store.Reader) *AdminHandler {
	return &AdminHandler{
		engine: engine,
		reader: reader,
	}
}

// ListAudit handles GET /v1/admin/audit - page through the audit trail
func (h *AdminHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := h.reader.ListAudit(r.Context(), userID, limit, offset)
	if err != nil {
		slog.Error("Failed to list audit entries",
			"user_id", userID,
			"error", err,
			"remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to list audit entries", nil)
		return
	}

	writeJSONResponse(w, http.StatusOK, models.AuditResponse{
		Entries: entries,
		Count:   len(entries),
		Offset:  offset,
	})
}

// Sweep handles POST /v1/admin/sweep - expire overdue holds on demand
func (h *AdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	slog.Info("Manual expiry sweep requested",
		"remote_addr", r.RemoteAddr,
		"user_agent", r.Header.Get("User-Agent"))

	expired, err := h.engine.CleanupExpired(r.Context())
	if err != nil {
		slog.Error("Manual expiry sweep failed", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to run expiry sweep", nil)
		return
	}

	writeJSONResponse(w, http.StatusOK, models.SweepResponse{Expired: expired})
}
