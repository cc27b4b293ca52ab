package models

import "inventory-reservation-api/internal/reservation"

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// Request/Response types for reservation operations

// ReserveRequest asks for a time-boxed hold on every listed item. The whole
// batch succeeds or nothing is held.
type ReserveRequest struct {
	UserID    string                  `json:"userId"`
	SessionID string                  `json:"sessionId"`
	Source    string                  `json:"source,omitempty"`
	Items     []reservation.StockItem `json:"items"`
}

// ValidateRequest asks whether the batch would fit right now, without
// creating holds. The answer is advisory.
type ValidateRequest struct {
	UserID string                  `json:"userId"`
	Items  []reservation.StockItem `json:"items"`
}

// ConfirmRequest converts held reservations into a completed sale. Callers
// pass either the reservation ids or the session id the holds were created
// under; with only a session id the ids are resolved from the session store.
// IdempotencyKey is mandatory so checkout retries cannot deduct stock twice.
type ConfirmRequest struct {
	ReservationIDs []string `json:"reservationIds,omitempty"`
	SessionID      string   `json:"sessionId,omitempty"`
	OrderID        string   `json:"orderId"`
	IdempotencyKey string   `json:"idempotencyKey"`
}

// ReleaseRequest returns held reservations to the pool before their TTL.
// Like ConfirmRequest it accepts reservation ids or a session id.
type ReleaseRequest struct {
	ReservationIDs []string `json:"reservationIds,omitempty"`
	SessionID      string   `json:"sessionId,omitempty"`
	Reason         string   `json:"reason,omitempty"`
	IdempotencyKey string   `json:"idempotencyKey,omitempty"`
}

// ReserveResponse reports the outcome of a reservation attempt. SessionID is
// echoed back so conversational clients can correlate follow-up calls.
type ReserveResponse struct {
	Reserved       bool                    `json:"reserved"`
	SessionID      string                  `json:"sessionId"`
	ReservationIDs []string                `json:"reservationIds,omitempty"`
	ExpiresAt      string                  `json:"expiresAt,omitempty"`
	Channel        string                  `json:"channel,omitempty"`
	Short          []reservation.ShortItem `json:"short,omitempty"`
}

// ValidateResponse mirrors the advisory stock check.
type ValidateResponse struct {
	Available bool                    `json:"available"`
	Short     []reservation.ShortItem `json:"short,omitempty"`
}

// ConfirmResponse reports a completed (or replayed) confirmation.
type ConfirmResponse struct {
	Confirmed      bool     `json:"confirmed"`
	OrderID        string   `json:"orderId"`
	ReservationIDs []string `json:"reservationIds"`
}

// ReleaseResponse reports a completed release. Releases are fail-soft, so
// the call succeeds even when some ids were already terminal.
type ReleaseResponse struct {
	Released       bool     `json:"released"`
	ReservationIDs []string `json:"reservationIds"`
}

// OptionResponse is one sellable choice of a product in an availability
// answer.
type OptionResponse struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Size      string `json:"size,omitempty"`
	Name      string `json:"name,omitempty"`
	Stock     int    `json:"stock"`
}

// AvailabilityResponse lists what a shopper could order right now, with
// active holds already subtracted.
type AvailabilityResponse struct {
	ProductID string           `json:"productId"`
	Sellable  bool             `json:"sellable"`
	Options   []OptionResponse `json:"options"`
}

// ReservationResponse is the status view of a single hold.
type ReservationResponse struct {
	Reservation *reservation.Reservation `json:"reservation"`
}

// AuditResponse is one page of the append-only audit trail, newest first.
type AuditResponse struct {
	Entries []reservation.AuditEntry `json:"entries"`
	Count   int                      `json:"count"`
	Offset  int                      `json:"offset"`
}

// SweepResponse reports how many overdue holds a manual sweep expired.
type SweepResponse struct {
	Expired int64 `json:"expired"`
}
