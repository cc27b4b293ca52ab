package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"inventory-reservation-api/internal/models"
	"inventory-reservation-api/internal/reservation"
	"inventory-reservation-api/internal/session"
	"inventory-reservation-api/internal/store"
	"inventory-reservation-api/internal/telemetry"
)

// ReservationHandler handles the reservation lifecycle HTTP requests
type ReservationHandler struct {
	engine   *reservation.Engine
	reader   *store.Reader
	sessions session.Store
}

// NewReservationHandler creates a new reservation handler
func NewReservationHandler(engine *reservation.Engine, reader *store.Reader, sessions session.Store) *ReservationHandler {
	return &ReservationHandler{
		engine:   engine,
		reader:   reader,
		sessions: sessions,
	}
}

// writeJSONResponse is a helper function to write JSON responses
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeErrorResponse is a helper function to write error responses
func writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string, details []models.ErrorDetail) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// writeEngineError maps engine failures onto HTTP statuses. Business
// conflicts are 409 with a structured body; anything unexpected is 500.
func writeEngineError(w http.ResponseWriter, err error) {
	var (
		insufficient *reservation.InsufficientStockError
		duplicate    *reservation.DuplicateReservationError
		expired      *reservation.ReservationExpiredError
		resErr       *reservation.ReservationError
		sysErr       *reservation.SystemError
	)

	switch {
	case errors.As(err, &insufficient):
		writeJSONResponse(w, http.StatusConflict, map[string]interface{}{
			"code":    "insufficient_stock",
			"message": insufficient.Error(),
			"short":   insufficient.Short,
		})
	case errors.As(err, &duplicate):
		writeJSONResponse(w, http.StatusConflict, map[string]interface{}{
			"code":      "duplicate_reservation",
			"message":   duplicate.Error(),
			"productId": duplicate.ProductID,
			"sessionId": duplicate.SessionID,
		})
	case errors.As(err, &expired):
		writeJSONResponse(w, http.StatusConflict, map[string]interface{}{
			"code":          "reservation_expired",
			"message":       expired.Error(),
			"reservationId": expired.ReservationID,
			"expiresAt":     expired.ExpiresAt.Format(time.RFC3339),
		})
	case errors.As(err, &resErr):
		writeErrorResponse(w, http.StatusConflict, "reservation_error", resErr.Error(), nil)
	case errors.As(err, &sysErr):
		slog.Error("Reservation system error", "error", sysErr)
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	default:
		slog.Error("Unexpected reservation error", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
}

// ValidateStock handles POST /v1/reservations/validate - advisory stock check
func (h *ReservationHandler) ValidateStock(w http.ResponseWriter, r *http.Request) {
	var req models.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid JSON in validate request", "error", err, "remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return
	}
	if req.UserID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "User ID is required", []models.ErrorDetail{
			{Field: "userId", Issue: "cannot be empty"},
		})
		return
	}

	result, err := h.engine.ValidateStock(r.Context(), req.UserID, req.Items)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, models.ValidateResponse{
		Available: result.Available,
		Short:     result.Short,
	})
}

// Reserve handles POST /v1/reservations - create a batch of holds
func (h *ReservationHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req models.ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid JSON in reserve request", "error", err, "remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return
	}
	if req.UserID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "User ID is required", []models.ErrorDetail{
			{Field: "userId", Issue: "cannot be empty"},
		})
		return
	}
	if req.SessionID == "" {
		// Conversational clients carry their own session id; others get one.
		req.SessionID = uuid.NewString()
	}

	ctx := telemetry.SetChannel(r.Context(), string(reservation.NormalizeChannel(req.Source)))
	r = r.WithContext(ctx)

	slog.Info("Processing reservation request",
		"user_id", req.UserID,
		"session_id", req.SessionID,
		"source", req.Source,
		"items", len(req.Items),
		"remote_addr", r.RemoteAddr)

	result, err := h.engine.ValidateAndReserve(ctx, req.UserID, req.Items, req.Source, req.SessionID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	resp := models.ReserveResponse{
		Reserved:       result.Reserved,
		SessionID:      req.SessionID,
		ReservationIDs: result.ReservationIDs,
		Channel:        string(result.Channel),
		Short:          result.Short,
	}
	if !result.ExpiresAt.IsZero() {
		resp.ExpiresAt = result.ExpiresAt.Format(time.RFC3339)
	}

	if !result.Reserved {
		// Shortfall is a structured conflict, not a server failure.
		writeJSONResponse(w, http.StatusConflict, resp)
		return
	}

	if err := h.sessions.Put(ctx, &session.CheckoutSession{
		SessionID:      req.SessionID,
		UserID:         req.UserID,
		Source:         string(result.Channel),
		ReservationIDs: result.ReservationIDs,
		ExpiresAt:      result.ExpiresAt,
		CreatedAt:      time.Now().UTC(),
	}); err != nil {
		// The holds exist regardless; session state is correlation only.
		slog.Error("Failed to store checkout session",
			"session_id", req.SessionID,
			"error", err)
	}

	writeJSONResponse(w, http.StatusCreated, resp)
}

// resolveReservationIDs returns the reservation ids a confirm/release call
// targets: the explicit ids when given, otherwise the ids recorded under the
// checkout session. On failure it writes the error response and returns false.
func (h *ReservationHandler) resolveReservationIDs(w http.ResponseWriter, r *http.Request, ids []string, sessionID string) ([]string, bool) {
	if len(ids) > 0 {
		return ids, true
	}
	if sessionID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Reservation IDs or session ID is required", []models.ErrorDetail{
			{Field: "reservationIds", Issue: "either reservationIds or sessionId must be given"},
		})
		return nil, false
	}

	sess, ok, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		slog.Error("Failed to load checkout session", "session_id", sessionID, "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
		return nil, false
	}
	if !ok || len(sess.ReservationIDs) == 0 {
		writeErrorResponse(w, http.StatusNotFound, "session_not_found",
			fmt.Sprintf("Checkout session not found or expired: %s", sessionID), nil)
		return nil, false
	}
	return sess.ReservationIDs, true
}

// dropSession removes the checkout session once its holds reached a terminal
// status. Failure only costs an early eviction, the store's TTL still applies.
func (h *ReservationHandler) dropSession(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	if err := h.sessions.Delete(ctx, sessionID); err != nil {
		slog.Warn("Failed to delete checkout session", "session_id", sessionID, "error", err)
	}
}

// Confirm handles POST /v1/reservations/confirm - deduct stock and finalize
func (h *ReservationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req models.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid JSON in confirm request", "error", err, "remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return
	}
	ids, ok := h.resolveReservationIDs(w, r, req.ReservationIDs, req.SessionID)
	if !ok {
		return
	}
	if req.IdempotencyKey == "" {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Idempotency key is required", []models.ErrorDetail{
			{Field: "idempotencyKey", Issue: "cannot be empty"},
		})
		return
	}

	slog.Info("Processing confirmation request",
		"order_id", req.OrderID,
		"session_id", req.SessionID,
		"reservations", len(ids),
		"idempotency_key", req.IdempotencyKey)

	if err := h.engine.ConfirmReservation(r.Context(), ids, req.OrderID, req.IdempotencyKey); err != nil {
		writeEngineError(w, err)
		return
	}

	// Confirmed holds are terminal; the session has nothing left to resolve.
	h.dropSession(r.Context(), req.SessionID)

	writeJSONResponse(w, http.StatusOK, models.ConfirmResponse{
		Confirmed:      true,
		OrderID:        req.OrderID,
		ReservationIDs: ids,
	})
}

// Release handles POST /v1/reservations/release - return holds to the pool
func (h *ReservationHandler) Release(w http.ResponseWriter, r *http.Request) {
	var req models.ReleaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid JSON in release request", "error", err, "remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return
	}
	ids, ok := h.resolveReservationIDs(w, r, req.ReservationIDs, req.SessionID)
	if !ok {
		return
	}

	if err := h.engine.ReleaseReservation(r.Context(), ids, req.Reason, req.IdempotencyKey); err != nil {
		writeEngineError(w, err)
		return
	}

	h.dropSession(r.Context(), req.SessionID)

	writeJSONResponse(w, http.StatusOK, models.ReleaseResponse{
		Released:       true,
		ReservationIDs: ids,
	})
}

// GetReservation handles GET /v1/reservations/{reservationId} - status lookup
func (h *ReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reservationID := vars["reservationId"]
	if reservationID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Reservation ID is required", []models.ErrorDetail{
			{Field: "reservationId", Issue: "cannot be empty"},
		})
		return
	}

	res, err := h.reader.GetReservation(r.Context(), reservationID)
	if err != nil {
		slog.Error("Failed to load reservation", "reservation_id", reservationID, "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
		return
	}
	if res == nil {
		writeErrorResponse(w, http.StatusNotFound, "not_found", fmt.Sprintf("Reservation not found: %s", reservationID), nil)
		return
	}

	writeJSONResponse(w, http.StatusOK, models.ReservationResponse{Reservation: res})
}
