package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"inventory-reservation-api/internal/catalog"
	"inventory-reservation-api/internal/models"
	"inventory-reservation-api/internal/store"
)

// AvailabilityHandler answers effective-stock queries: catalog figures minus
// the quantities currently held by active reservations.
type AvailabilityHandler struct {
	reader *store.Reader
}

// NewAvailabilityHandler creates a new availability handler
func NewAvailabilityHandler(reader *store.Reader) *AvailabilityHandler {
	return &AvailabilityHandler{reader: reader}
}

// GetAvailability handles GET /v1/availability/{productId}?userId=...
func (h *AvailabilityHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	productID := vars["productId"]
	if productID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Product ID is required", []models.ErrorDetail{
			{Field: "productId", Issue: "cannot be empty"},
		})
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "User ID is required", []models.ErrorDetail{
			{Field: "userId", Issue: "cannot be empty"},
		})
		return
	}

	snapshot, reserved, err := h.reader.Snapshot(r.Context(), userID, productID)
	if err != nil {
		slog.Error("Failed to build availability snapshot",
			"user_id", userID,
			"product_id", productID,
			"error", err)
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
		return
	}

	options := catalog.SellableOptions(snapshot, reserved)

	resp := models.AvailabilityResponse{
		ProductID: productID,
		Sellable:  catalog.IsSellable(snapshot, reserved),
		Options:   make([]models.OptionResponse, 0, len(options)),
	}
	for _, opt := range options {
		resp.Options = append(resp.Options, models.OptionResponse{
			ProductID: opt.ProductID,
			VariantID: opt.VariantID,
			Size:      opt.Size,
			Name:      opt.Name,
			Stock:     opt.EffectiveStock,
		})
	}

	slog.Debug("Availability computed",
		"user_id", userID,
		"product_id", productID,
		"sellable_options", len(options))

	writeJSONResponse(w, http.StatusOK, resp)
}
