package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"inventory-reservation-api/internal/catalog"
	"inventory-reservation-api/internal/reservation"
)

// Reader is the read-only stock surface handed to everything outside the
// reservation engine. It deliberately exposes no mutating methods: the only
// code path able to decrement stock is the engine's confirm step through the
// ledger.
type Reader struct {
	db *gorm.DB
}

// NewReader wraps an open GORM handle with the read-only surface.
func NewReader(db *gorm.DB) *Reader {
	return &Reader{db: db}
}

// Snapshot assembles the availability calculator's view of one product: the
// stock figures per scope plus the quantities currently held by active
// reservations. The snapshot is advisory; the engine re-validates under row
// locks before creating holds.
func (r *Reader) Snapshot(ctx context.Context, userID, productID string) (*catalog.ProductSnapshot, catalog.ReservedQuantities, error) {
	var records []StockRecord
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Order("variant_id, size").
		Find(&records).Error; err != nil {
		return nil, nil, err
	}

	snapshot := &catalog.ProductSnapshot{
		ProductID:   productID,
		IsAvailable: true,
	}
	variants := make(map[string]*catalog.VariantSnapshot)

	for i := range records {
		rec := &records[i]
		switch {
		case rec.VariantID == "" && rec.Size == "":
			// Base scalar row also carries the product's display name and
			// availability flag.
			qty := rec.Quantity
			snapshot.Stock = &qty
			snapshot.Name = rec.Name
			snapshot.IsAvailable = rec.IsAvailable
		case rec.VariantID == "":
			if snapshot.SizeStocks == nil {
				snapshot.SizeStocks = make(map[string]int)
			}
			snapshot.SizeStocks[rec.Size] = rec.Quantity
		default:
			v := variants[rec.VariantID]
			if v == nil {
				v = &catalog.VariantSnapshot{VariantID: rec.VariantID, IsAvailable: true}
				variants[rec.VariantID] = v
			}
			if rec.Size == "" {
				qty := rec.Quantity
				v.Stock = &qty
				v.Name = rec.Name
				v.IsAvailable = rec.IsAvailable
			} else {
				if v.SizeStocks == nil {
					v.SizeStocks = make(map[string]int)
				}
				v.SizeStocks[rec.Size] = rec.Quantity
			}
		}
	}

	for _, id := range variantOrder(records) {
		snapshot.Variants = append(snapshot.Variants, *variants[id])
	}

	reserved, err := r.reservedQuantities(ctx, userID, productID)
	if err != nil {
		return nil, nil, err
	}
	return snapshot, reserved, nil
}

// variantOrder returns distinct variant ids in row order so snapshots are
// deterministic.
func variantOrder(records []StockRecord) []string {
	seen := make(map[string]bool)
	var order []string
	for _, rec := range records {
		if rec.VariantID != "" && !seen[rec.VariantID] {
			seen[rec.VariantID] = true
			order = append(order, rec.VariantID)
		}
	}
	return order
}

type reservedRow struct {
	VariantID string
	Size      string
	Total     int
}

func (r *Reader) reservedQuantities(ctx context.Context, userID, productID string) (catalog.ReservedQuantities, error) {
	var rows []reservedRow
	err := r.db.WithContext(ctx).Model(&reservation.Reservation{}).
		Select("variant_id, size, COALESCE(SUM(quantity), 0) AS total").
		Where("user_id = ? AND product_id = ? AND status = ? AND expires_at > ?",
			userID, productID, reservation.StatusReserved, time.Now().UTC()).
		Group("variant_id, size").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	reserved := make(catalog.ReservedQuantities, len(rows))
	for _, row := range rows {
		reserved[catalog.StockScope{ProductID: productID, VariantID: row.VariantID, Size: row.Size}] = row.Total
	}
	return reserved, nil
}

// GetReservation loads one reservation without locking, for status queries.
func (r *Reader) GetReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	var res reservation.Reservation
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListAudit returns a page of the append-only audit trail, newest first.
// The trail is forensic: nothing in the engine reads it back.
func (r *Reader) ListAudit(ctx context.Context, userID string, limit, offset int) ([]reservation.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	q := r.db.WithContext(ctx).Model(&reservation.AuditEntry{}).
		Order("id DESC").
		Limit(limit).
		Offset(offset)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}

	var entries []reservation.AuditEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
