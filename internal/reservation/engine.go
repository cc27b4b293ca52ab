package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"inventory-reservation-api/internal/cache"
)

// Engine orchestrates the reservation lifecycle: validate -> reserve ->
// confirm/release, with TTL expiry handled by the sweeper. It is the single
// authority permitted to mutate stock quantities; deduction happens only
// inside ConfirmReservation, under the ledger's row locks.
type Engine struct {
	ledger      Ledger
	ttl         *TTLTable
	idempotency *cache.TTLCache
	metrics     Metrics
}

// errBatchShort aborts the reserve transaction when any item is short; the
// shortfall itself travels back through the enclosing scope.
var errBatchShort = errors.New("reservation batch short")

// NewEngine creates a reservation engine. The idempotency cache is a fast
// path in front of the durable idempotency table and may be nil; metrics may
// be nil to disable instrumentation.
func NewEngine(ledger Ledger, ttl *TTLTable, idempotencyCache *cache.TTLCache, metrics Metrics) *Engine {
	if ttl == nil {
		ttl = DefaultTTLTable()
	}

	slog.Info("Reservation engine initialized",
		"whatsapp_ttl", ttl.For(ChannelWhatsApp).String(),
		"website_ttl", ttl.For(ChannelWebsite).String(),
		"admin_ttl", ttl.For(ChannelAdmin).String(),
		"api_ttl", ttl.For(ChannelAPI).String())

	return &Engine{
		ledger:      ledger,
		ttl:         ttl,
		idempotency: idempotencyCache,
		metrics:     metrics,
	}
}

// ValidateStock is the advisory, read-only check: for each item it computes
// effective stock (available minus active holds) and reports either the full
// validated batch or every short line. It never creates state and its answer
// can be stale by the time a reserve runs; ValidateAndReserve re-validates
// under locks.
func (e *Engine) ValidateStock(ctx context.Context, userID string, items []StockItem) (*ValidationResult, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var short []ShortItem

	err := e.ledger.WithinTx(ctx, func(tx LedgerTx) error {
		for _, item := range items {
			effective, err := e.effectiveStock(ctx, tx, userID, item, now, false)
			if err != nil {
				return err
			}
			if effective < item.Quantity {
				short = append(short, shortFor(item, effective))
			}
		}
		return nil
	})
	if err != nil {
		return nil, &SystemError{Op: "validate_stock", Err: err}
	}

	if len(short) > 0 {
		slog.Info("Stock validation found short items",
			"user_id", userID,
			"requested_items", len(items),
			"short_items", len(short))
		return &ValidationResult{Available: false, Short: short}, nil
	}

	slog.Debug("Stock validation passed", "user_id", userID, "items", len(items))
	return &ValidationResult{Available: true, Items: items}, nil
}

// ValidateAndReserve re-validates every item under row locks and inserts one
// RESERVED row per item in the same transaction: either the whole batch
// reserves or nothing does. A shortfall is a structured result, not an error;
// a duplicate active hold for the same session is a DuplicateReservationError.
func (e *Engine) ValidateAndReserve(ctx context.Context, userID string, items []StockItem, source, sessionID string) (*ReserveResult, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}
	if sessionID == "" {
		return nil, &ReservationError{Reason: "session id is required"}
	}

	channel := NormalizeChannel(source)
	now := time.Now().UTC()
	expiresAt := now.Add(e.ttl.For(channel))

	var (
		short []ShortItem
		ids   []string
	)

	err := e.ledger.WithinTx(ctx, func(tx LedgerTx) error {
		// Lock and re-validate every row first so a later shortfall cannot
		// leave earlier items reserved.
		available := make([]int, len(items))
		for i, item := range items {
			effective, err := e.effectiveStock(ctx, tx, userID, item, now, true)
			if err != nil {
				if errors.Is(err, ErrRowContended) {
					// Fail-fast contention policy: the row is being written
					// by a peer; report it like a shortfall instead of
					// queuing behind the lock.
					slog.Warn("Stock row contended during reserve",
						"user_id", userID,
						"product_id", item.ProductID,
						"variant_id", item.VariantID,
						"size", item.Size)
					short = append(short, shortFor(item, 0))
					continue
				}
				return err
			}
			if effective < item.Quantity {
				short = append(short, shortFor(item, effective))
				continue
			}
			available[i] = effective
		}
		if len(short) > 0 {
			return errBatchShort
		}

		for i, item := range items {
			r := &Reservation{
				ID:                uuid.NewString(),
				UserID:            userID,
				SessionID:         sessionID,
				ProductID:         item.ProductID,
				VariantID:         item.Scope().VariantID,
				Size:              item.Size,
				Color:             item.Color,
				Quantity:          item.Quantity,
				AvailableSnapshot: available[i],
				Status:            StatusReserved,
				Source:            string(channel),
				ExpiresAt:         expiresAt,
				CreatedAt:         now,
			}
			if err := tx.InsertReservation(ctx, r); err != nil {
				if errors.Is(err, ErrDuplicateActiveHold) {
					return &DuplicateReservationError{
						UserID:    userID,
						SessionID: sessionID,
						ProductID: item.ProductID,
						VariantID: r.VariantID,
						Size:      item.Size,
					}
				}
				return err
			}
			if err := tx.AppendAudit(ctx, &AuditEntry{
				Action:         AuditActionCreated,
				ReservationID:  r.ID,
				UserID:         userID,
				ProductID:      r.ProductID,
				VariantID:      r.VariantID,
				Size:           r.Size,
				QuantityChange: 0,
				StockBefore:    available[i],
				StockAfter:     available[i],
				Source:         string(channel),
				CorrelationID:  sessionID,
				CreatedAt:      now,
			}); err != nil {
				return err
			}
			ids = append(ids, r.ID)
		}
		return nil
	})

	switch {
	case err == nil:
		e.countCreated(ctx, len(ids), channel)
		slog.Info("Reservation batch created",
			"user_id", userID,
			"session_id", sessionID,
			"channel", string(channel),
			"items", len(items),
			"expires_at", expiresAt.Format(time.RFC3339))
		return &ReserveResult{
			Reserved:       true,
			ReservationIDs: ids,
			ExpiresAt:      expiresAt,
			Channel:        channel,
		}, nil

	case errors.Is(err, errBatchShort):
		e.countBlocked(ctx, len(short))
		slog.Info("Reservation batch rejected on insufficient stock",
			"user_id", userID,
			"session_id", sessionID,
			"requested_items", len(items),
			"short_items", len(short))
		return &ReserveResult{Reserved: false, Short: short, Channel: channel}, nil

	default:
		var dup *DuplicateReservationError
		if errors.As(err, &dup) {
			e.countDuplicate(ctx)
			slog.Warn("Duplicate active reservation rejected",
				"user_id", userID,
				"session_id", sessionID,
				"product_id", dup.ProductID)
			return nil, dup
		}
		return nil, &SystemError{Op: "validate_and_reserve", Err: err}
	}
}

// ConfirmReservation is the only stock-mutating path. The whole batch
// confirms atomically: every reservation transitions to CONFIRMED and every
// deduction applies, or the transaction rolls back. A replayed idempotency
// key returns success without touching stock.
func (e *Engine) ConfirmReservation(ctx context.Context, reservationIDs []string, orderID, idempotencyKey string) error {
	if len(reservationIDs) == 0 {
		return &ReservationError{Reason: "no reservation ids given"}
	}
	if idempotencyKey == "" {
		return &ReservationError{Reason: "idempotency key is required for confirm"}
	}

	if e.replaySeen(idempotencyKey, ActionConfirm) {
		slog.Info("Confirm replay short-circuited by cache",
			"idempotency_key", idempotencyKey,
			"order_id", orderID)
		return nil
	}

	now := time.Now().UTC()
	confirmed := 0
	var opErr error

	err := e.ledger.WithinTx(ctx, func(tx LedgerTx) error {
		recorded, err := tx.IdempotencyExists(ctx, idempotencyKey, ActionConfirm)
		if err != nil {
			return err
		}
		if recorded {
			slog.Info("Confirm replay detected in durable store",
				"idempotency_key", idempotencyKey,
				"order_id", orderID)
			return nil
		}

		var first *Reservation
		totalQty := 0
		for _, id := range reservationIDs {
			r, err := tx.ReservationForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if r == nil {
				opErr = &ReservationError{ReservationID: id, Reason: "not found"}
				return opErr
			}

			switch r.Status {
			case StatusConfirmed:
				// Already confirmed by an earlier call: idempotent success
				// for this line, nothing to deduct.
				continue
			case StatusExpired:
				opErr = &ReservationExpiredError{ReservationID: r.ID, ExpiresAt: r.ExpiresAt}
				return opErr
			case StatusReleased:
				opErr = &ReservationError{ReservationID: r.ID, Reason: "already released"}
				return opErr
			case StatusReserved:
				if r.IsExpired(now) {
					opErr = &ReservationExpiredError{ReservationID: r.ID, ExpiresAt: r.ExpiresAt}
					return opErr
				}
			default:
				opErr = &ReservationError{ReservationID: r.ID, Reason: fmt.Sprintf("unexpected status %s", r.Status)}
				return opErr
			}

			row, err := tx.LockStock(ctx, r.UserID, r.Scope())
			if err != nil {
				return err
			}
			before := 0
			if row != nil {
				before = row.Quantity
			}

			applied, err := tx.DeductStock(ctx, r.UserID, r.Scope(), r.Quantity)
			if err != nil {
				return err
			}
			if !applied {
				opErr = &InsufficientStockError{Short: []ShortItem{{
					ProductID: r.ProductID,
					VariantID: r.VariantID,
					Size:      r.Size,
					Requested: r.Quantity,
					Available: before,
				}}}
				return opErr
			}

			r.Status = StatusConfirmed
			r.OrderID = orderID
			r.ConfirmedAt = &now
			if err := tx.UpdateReservation(ctx, r); err != nil {
				return err
			}

			if err := tx.AppendAudit(ctx, &AuditEntry{
				Action:         AuditActionConfirmed,
				ReservationID:  r.ID,
				UserID:         r.UserID,
				ProductID:      r.ProductID,
				VariantID:      r.VariantID,
				Size:           r.Size,
				QuantityChange: -r.Quantity,
				StockBefore:    before,
				StockAfter:     before - r.Quantity,
				Source:         r.Source,
				CorrelationID:  orderID,
				CreatedAt:      now,
			}); err != nil {
				return err
			}

			if first == nil {
				first = r
			}
			totalQty += r.Quantity
			confirmed++
		}

		ev := &IdempotencyEvent{
			IdempotencyKey: idempotencyKey,
			Action:         ActionConfirm,
			ReservationIDs: strings.Join(reservationIDs, ","),
			Quantity:       totalQty,
			CreatedAt:      now,
		}
		if first != nil {
			ev.ProductID = first.ProductID
			ev.VariantID = first.VariantID
			ev.Size = first.Size
		}
		if _, err := tx.RecordIdempotency(ctx, ev); err != nil {
			return err
		}
		return nil
	})

	if err != nil {
		if opErr != nil && errors.Is(err, opErr) {
			return opErr
		}
		return &SystemError{Op: "confirm_reservation", Err: err}
	}

	e.cacheReplay(idempotencyKey, ActionConfirm)
	e.countConfirmed(ctx, confirmed)
	slog.Info("Reservation batch confirmed",
		"order_id", orderID,
		"reservations", len(reservationIDs),
		"confirmed", confirmed,
		"idempotency_key", idempotencyKey)
	return nil
}

// ReleaseReservation releases holds without touching stock. It is
// deliberately fail-soft: already-released, expired, or unknown ids are
// success, because over-releasing is always safe. Only infrastructure
// failures surface, as SystemError.
func (e *Engine) ReleaseReservation(ctx context.Context, reservationIDs []string, reason, idempotencyKey string) error {
	if len(reservationIDs) == 0 {
		return nil
	}

	if idempotencyKey != "" && e.replaySeen(idempotencyKey, ActionRelease) {
		slog.Info("Release replay short-circuited by cache", "idempotency_key", idempotencyKey)
		return nil
	}

	now := time.Now().UTC()
	released := 0

	err := e.ledger.WithinTx(ctx, func(tx LedgerTx) error {
		if idempotencyKey != "" {
			recorded, err := tx.IdempotencyExists(ctx, idempotencyKey, ActionRelease)
			if err != nil {
				return err
			}
			if recorded {
				return nil
			}
		}

		for _, id := range reservationIDs {
			r, err := tx.ReservationForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if r == nil || r.Status != StatusReserved {
				// Nothing to do: missing or already terminal.
				continue
			}

			r.Status = StatusReleased
			r.ReleasedAt = &now
			r.ReleaseReason = reason
			if err := tx.UpdateReservation(ctx, r); err != nil {
				return err
			}

			if err := tx.AppendAudit(ctx, &AuditEntry{
				Action:        AuditActionReleased,
				ReservationID: r.ID,
				UserID:        r.UserID,
				ProductID:     r.ProductID,
				VariantID:     r.VariantID,
				Size:          r.Size,
				// Releasing never mutates stock.
				QuantityChange: 0,
				Source:         r.Source,
				CorrelationID:  reason,
				CreatedAt:      now,
			}); err != nil {
				return err
			}
			released++
		}

		if idempotencyKey != "" {
			ev := &IdempotencyEvent{
				IdempotencyKey: idempotencyKey,
				Action:         ActionRelease,
				ReservationIDs: strings.Join(reservationIDs, ","),
				CreatedAt:      now,
			}
			if _, err := tx.RecordIdempotency(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &SystemError{Op: "release_reservation", Err: err}
	}

	if idempotencyKey != "" {
		e.cacheReplay(idempotencyKey, ActionRelease)
	}
	e.countReleased(ctx, released, reason)
	slog.Info("Reservation release processed",
		"requested", len(reservationIDs),
		"released", released,
		"reason", reason)
	return nil
}

// CleanupExpired bulk-transitions every RESERVED row past its TTL to EXPIRED
// without touching stock. Safe to run concurrently with itself and with live
// traffic; a run with nothing expired is a no-op.
func (e *Engine) CleanupExpired(ctx context.Context) (int64, error) {
	now := time.Now().UTC()

	var count int64
	err := e.ledger.WithinTx(ctx, func(tx LedgerTx) error {
		n, err := tx.ExpireDueReservations(ctx, now, ReleaseReasonTimeout)
		if err != nil {
			return err
		}
		count = n
		return nil
	})
	if err != nil {
		return 0, &SystemError{Op: "cleanup_expired", Err: err}
	}

	if count > 0 {
		e.countExpired(ctx, count)
		slog.Info("Expired reservations reclaimed", "count", count)
	} else {
		slog.Debug("Expiry sweep found nothing to reclaim")
	}
	return count, nil
}

// effectiveStock computes available minus active holds for one item's scope.
// With lock set, the stock row is locked for the remainder of the
// transaction (skip-locked: contention surfaces as ErrRowContended).
func (e *Engine) effectiveStock(ctx context.Context, tx LedgerTx, userID string, item StockItem, now time.Time, lock bool) (int, error) {
	scope := item.Scope()

	var (
		row *StockRow
		err error
	)
	if lock {
		row, err = tx.LockStock(ctx, userID, scope)
	} else {
		row, err = tx.GetStock(ctx, userID, scope)
	}
	if err != nil {
		return 0, err
	}

	available := 0
	if row != nil && row.IsAvailable {
		available = row.Quantity
	}

	reserved, err := tx.ActiveReservedQuantity(ctx, userID, scope, now)
	if err != nil {
		return 0, err
	}
	return available - reserved, nil
}

func validateItems(items []StockItem) error {
	if len(items) == 0 {
		return &ReservationError{Reason: "no items given"}
	}
	for _, item := range items {
		if item.ProductID == "" {
			return &ReservationError{Reason: "item missing product id"}
		}
		if item.Quantity <= 0 {
			return &ReservationError{Reason: fmt.Sprintf("invalid quantity %d for product %s", item.Quantity, item.ProductID)}
		}
	}
	return nil
}

func shortFor(item StockItem, available int) ShortItem {
	if available < 0 {
		available = 0
	}
	return ShortItem{
		ProductID: item.ProductID,
		VariantID: item.Scope().VariantID,
		Size:      item.Size,
		Name:      item.Name,
		Requested: item.Quantity,
		Available: available,
	}
}

func (e *Engine) replaySeen(key string, action Action) bool {
	if e.idempotency == nil {
		return false
	}
	_, seen := e.idempotency.Get(replayCacheKey(key, action))
	return seen
}

func (e *Engine) cacheReplay(key string, action Action) {
	if e.idempotency != nil {
		e.idempotency.Set(replayCacheKey(key, action), true)
	}
}

func replayCacheKey(key string, action Action) string {
	return string(action) + ":" + key
}

func (e *Engine) countCreated(ctx context.Context, n int, ch Channel) {
	if e.metrics != nil && n > 0 {
		e.metrics.ReservationsCreated(ctx, n, ch)
	}
}

func (e *Engine) countConfirmed(ctx context.Context, n int) {
	if e.metrics != nil && n > 0 {
		e.metrics.ReservationsConfirmed(ctx, n)
	}
}

func (e *Engine) countReleased(ctx context.Context, n int, reason string) {
	if e.metrics != nil && n > 0 {
		e.metrics.ReservationsReleased(ctx, n, reason)
	}
}

func (e *Engine) countExpired(ctx context.Context, n int64) {
	if e.metrics != nil && n > 0 {
		e.metrics.ReservationsExpired(ctx, n)
	}
}

func (e *Engine) countBlocked(ctx context.Context, n int) {
	if e.metrics != nil && n > 0 {
		e.metrics.StockBlocked(ctx, n)
	}
}

func (e *Engine) countDuplicate(ctx context.Context) {
	if e.metrics != nil {
		e.metrics.DuplicateHolds(ctx, 1)
	}
}
