package reservation

import (
	"context"
	"time"

	"inventory-reservation-api/internal/catalog"
)

// StockRow is the engine's view of one stock record inside a transaction.
type StockRow struct {
	UserID      string
	Scope       catalog.StockScope
	Name        string
	Quantity    int
	IsAvailable bool
}

// Ledger is the durable store the engine drives. It is the only interface in
// the system carrying stock-mutating operations; everything else reads
// through catalog.StockReader-style views. The engine owns the single Ledger
// handle, which is how the single-writer invariant is enforced by design
// rather than by convention.
type Ledger interface {
	// WithinTx runs fn inside one transaction. A non-nil error from fn rolls
	// everything back, so a batch either fully commits or leaves no trace.
	WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error
}

// LedgerTx exposes the per-transaction operations. Implementations must make
// LockStock non-blocking (skip-locked discipline): an immediately
// unacquirable row is ErrRowContended, never a wait, so contention on one row
// cannot queue unrelated transactions.
type LedgerTx interface {
	// LockStock acquires a row lock on the stock record for the scope.
	// Returns (nil, nil) when no record exists (fail-closed zero stock) and
	// ErrRowContended when the row is locked by a peer transaction.
	LockStock(ctx context.Context, userID string, scope catalog.StockScope) (*StockRow, error)

	// GetStock reads the stock record without locking, for advisory checks.
	GetStock(ctx context.Context, userID string, scope catalog.StockScope) (*StockRow, error)

	// ActiveReservedQuantity sums the quantity held by RESERVED rows whose
	// TTL has not yet elapsed for the scope.
	ActiveReservedQuantity(ctx context.Context, userID string, scope catalog.StockScope, now time.Time) (int, error)

	// InsertReservation creates a RESERVED row. Returns
	// ErrDuplicateActiveHold when the active-hold uniqueness constraint
	// rejects it.
	InsertReservation(ctx context.Context, r *Reservation) error

	// ReservationForUpdate loads a reservation under a row lock. Returns
	// (nil, nil) when the id is unknown.
	ReservationForUpdate(ctx context.Context, id string) (*Reservation, error)

	// UpdateReservation persists a status transition.
	UpdateReservation(ctx context.Context, r *Reservation) error

	// DeductStock atomically applies quantity -= qty guarded by
	// quantity >= qty; reports whether the guard held and a row was updated.
	DeductStock(ctx context.Context, userID string, scope catalog.StockScope, qty int) (bool, error)

	// IdempotencyExists reports whether the (key, action) pair was recorded.
	IdempotencyExists(ctx context.Context, key string, action Action) (bool, error)

	// RecordIdempotency inserts the event; a duplicate key is reported as
	// (false, nil), not an error.
	RecordIdempotency(ctx context.Context, ev *IdempotencyEvent) (bool, error)

	// AppendAudit appends one audit entry. Entries are insert-only.
	AppendAudit(ctx context.Context, entry *AuditEntry) error

	// ExpireDueReservations bulk-transitions RESERVED rows whose expires_at
	// has passed to EXPIRED with the given release reason, returning how many
	// rows changed.
	ExpireDueReservations(ctx context.Context, now time.Time, reason string) (int64, error)
}

// Metrics receives the engine's operation counters. Implementations must be
// safe for concurrent use; a nil Metrics disables instrumentation.
type Metrics interface {
	ReservationsCreated(ctx context.Context, n int, channel Channel)
	ReservationsConfirmed(ctx context.Context, n int)
	ReservationsReleased(ctx context.Context, n int, reason string)
	ReservationsExpired(ctx context.Context, n int64)
	StockBlocked(ctx context.Context, n int)
	DuplicateHolds(ctx context.Context, n int)
}
