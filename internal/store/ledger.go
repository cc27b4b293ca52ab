package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"inventory-reservation-api/internal/catalog"
	"inventory-reservation-api/internal/reservation"
)

// PostgresLedger implements reservation.Ledger over GORM/Postgres. Stock row
// locks use FOR UPDATE SKIP LOCKED inside a single transaction: a row held
// by a peer transaction is reported as reservation.ErrRowContended
// immediately instead of queuing, so contention on one scope never delays
// reservations against other scopes.
type PostgresLedger struct {
	db *gorm.DB
}

// NewPostgresLedger wraps an open GORM handle. The returned ledger is the
// only component handed to the reservation engine with mutating access; the
// read-only surface lives on Reader.
func NewPostgresLedger(db *gorm.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// WithinTx runs fn inside one database transaction.
func (l *PostgresLedger) WithinTx(ctx context.Context, fn func(tx reservation.LedgerTx) error) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgTx{db: tx})
	})
}

// pgTx implements reservation.LedgerTx for the lifetime of one transaction.
type pgTx struct {
	db *gorm.DB
}

func (t *pgTx) LockStock(ctx context.Context, userID string, scope catalog.StockScope) (*reservation.StockRow, error) {
	var rec StockRecord
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("user_id = ? AND product_id = ? AND variant_id = ? AND size = ?",
			userID, scope.ProductID, scope.VariantID, scope.Size).
		Take(&rec).Error
	if err == nil {
		return toStockRow(&rec), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// SKIP LOCKED returns no row both when the record is absent and when a
	// peer holds its lock; a plain count disambiguates the two.
	var n int64
	if err := t.db.WithContext(ctx).Model(&StockRecord{}).
		Where("user_id = ? AND product_id = ? AND variant_id = ? AND size = ?",
			userID, scope.ProductID, scope.VariantID, scope.Size).
		Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, reservation.ErrRowContended
	}
	return nil, nil
}

func (t *pgTx) GetStock(ctx context.Context, userID string, scope catalog.StockScope) (*reservation.StockRow, error) {
	var rec StockRecord
	err := t.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND variant_id = ? AND size = ?",
			userID, scope.ProductID, scope.VariantID, scope.Size).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toStockRow(&rec), nil
}

func (t *pgTx) ActiveReservedQuantity(ctx context.Context, userID string, scope catalog.StockScope, now time.Time) (int, error) {
	var total int
	err := t.db.WithContext(ctx).Model(&reservation.Reservation{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("user_id = ? AND product_id = ? AND variant_id = ? AND size = ? AND status = ? AND expires_at > ?",
			userID, scope.ProductID, scope.VariantID, scope.Size, reservation.StatusReserved, now).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (t *pgTx) InsertReservation(ctx context.Context, r *reservation.Reservation) error {
	err := t.db.WithContext(ctx).Create(r).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return reservation.ErrDuplicateActiveHold
	}
	return err
}

func (t *pgTx) ReservationForUpdate(ctx context.Context, id string) (*reservation.Reservation, error) {
	var r reservation.Reservation
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (t *pgTx) UpdateReservation(ctx context.Context, r *reservation.Reservation) error {
	return t.db.WithContext(ctx).Save(r).Error
}

func (t *pgTx) DeductStock(ctx context.Context, userID string, scope catalog.StockScope, qty int) (bool, error) {
	// The quantity >= qty guard makes the decrement atomic: the affected-row
	// count tells us whether stock was sufficient, with no read-then-write
	// window for another transaction to slip through.
	res := t.db.WithContext(ctx).Model(&StockRecord{}).
		Where("user_id = ? AND product_id = ? AND variant_id = ? AND size = ? AND quantity >= ?",
			userID, scope.ProductID, scope.VariantID, scope.Size, qty).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (t *pgTx) IdempotencyExists(ctx context.Context, key string, action reservation.Action) (bool, error) {
	var n int64
	err := t.db.WithContext(ctx).Model(&reservation.IdempotencyEvent{}).
		Where("idempotency_key = ? AND action = ?", key, action).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *pgTx) RecordIdempotency(ctx context.Context, ev *reservation.IdempotencyEvent) (bool, error) {
	err := t.db.WithContext(ctx).Create(ev).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Already recorded by a concurrent retry; the action executed once.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *pgTx) AppendAudit(ctx context.Context, entry *reservation.AuditEntry) error {
	return t.db.WithContext(ctx).Create(entry).Error
}

func (t *pgTx) ExpireDueReservations(ctx context.Context, now time.Time, reason string) (int64, error) {
	res := t.db.WithContext(ctx).Model(&reservation.Reservation{}).
		Where("status = ? AND expires_at <= ?", reservation.StatusReserved, now).
		Updates(map[string]interface{}{
			"status":         reservation.StatusExpired,
			"release_reason": reason,
			"released_at":    now,
		})
	return res.RowsAffected, res.Error
}

func toStockRow(rec *StockRecord) *reservation.StockRow {
	return &reservation.StockRow{
		UserID: rec.UserID,
		Scope: catalog.StockScope{
			ProductID: rec.ProductID,
			VariantID: rec.VariantID,
			Size:      rec.Size,
		},
		Name:        rec.Name,
		Quantity:    rec.Quantity,
		IsAvailable: rec.IsAvailable,
	}
}
