package store

import (
	"time"
)

// StockRecord is the persistent sellable quantity for one
// (user, product, variant, size) scope. Scope columns hold empty strings
// rather than NULLs so the uniqueness constraint compares them reliably:
// variant-scoped and base-scoped rows are distinct facts that never merge.
//
// Rows are created and adjusted by catalog management upstream; the
// reservation engine only reads them and, on confirm, decrements quantity
// through the ledger's guarded update.
type StockRecord struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      string    `gorm:"size:64;not null;uniqueIndex:ux_stock_scope"`
	ProductID   string    `gorm:"size:64;not null;uniqueIndex:ux_stock_scope"`
	VariantID   string    `gorm:"size:64;not null;default:'';uniqueIndex:ux_stock_scope"`
	Size        string    `gorm:"size:32;not null;default:'';uniqueIndex:ux_stock_scope"`
	Name        string    `gorm:"size:256;not null;default:''"`
	Quantity    int       `gorm:"not null;default:0"`
	IsAvailable bool      `gorm:"not null;default:true"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName implements the GORM tabler interface.
func (StockRecord) TableName() string { return "stock_records" }
