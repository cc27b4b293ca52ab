package reservation

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors the ledger implementation reports back to the engine.
var (
	// ErrRowContended means a stock row exists but its lock could not be
	// acquired immediately (SKIP LOCKED discipline). The engine surfaces it
	// as a contention failure, never as a wait.
	ErrRowContended = errors.New("stock row contended")

	// ErrDuplicateActiveHold means the active-hold uniqueness constraint
	// rejected an insert: the same session already holds this item.
	ErrDuplicateActiveHold = errors.New("duplicate active hold")
)

// InsufficientStockError reports that a confirm could not deduct because the
// quantity guard failed; the whole batch is rolled back.
type InsufficientStockError struct {
	Short []ShortItem
}

func (e *InsufficientStockError) Error() string {
	if len(e.Short) == 1 {
		s := e.Short[0]
		return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", s.ProductID, s.Requested, s.Available)
	}
	return fmt.Sprintf("insufficient stock for %d items", len(e.Short))
}

// DuplicateReservationError reports that the same session already holds an
// active reservation for an item of the batch. The caller should reuse the
// existing reservation rather than retry blindly.
type DuplicateReservationError struct {
	UserID    string
	SessionID string
	ProductID string
	VariantID string
	Size      string
}

func (e *DuplicateReservationError) Error() string {
	return fmt.Sprintf("active reservation already exists for product %s (session %s)", e.ProductID, e.SessionID)
}

// ReservationExpiredError reports a confirm attempted after the hold's TTL
// elapsed. The caller must restart the validate/reserve flow.
type ReservationExpiredError struct {
	ReservationID string
	ExpiresAt     time.Time
}

func (e *ReservationExpiredError) Error() string {
	return fmt.Sprintf("reservation %s expired at %s", e.ReservationID, e.ExpiresAt.Format(time.RFC3339))
}

// ReservationError is the generic business failure: reservation missing,
// wrong status for the requested transition, or creation failed for reasons
// other than stock or duplication.
type ReservationError struct {
	ReservationID string
	Reason        string
}

func (e *ReservationError) Error() string {
	if e.ReservationID == "" {
		return fmt.Sprintf("reservation error: %s", e.Reason)
	}
	return fmt.Sprintf("reservation %s: %s", e.ReservationID, e.Reason)
}

// SystemError wraps an unexpected persistence/infrastructure failure. The
// transaction it occurred in is rolled back, so no reservation is ever left
// half-transitioned; callers retry with backoff.
type SystemError struct {
	Op  string
	Err error
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("reservation system error during %s: %v", e.Op, e.Err)
}

func (e *SystemError) Unwrap() error {
	return e.Err
}
