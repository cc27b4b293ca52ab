package reservation

import (
	"time"

	"inventory-reservation-api/internal/catalog"
)

// Status is the lifecycle state of a reservation. Transitions are monotone
// and one-directional: RESERVED may move to exactly one of the three terminal
// states and nothing ever leaves a terminal state.
type Status string

const (
	StatusReserved  Status = "RESERVED"
	StatusConfirmed Status = "CONFIRMED"
	StatusReleased  Status = "RELEASED"
	StatusExpired   Status = "EXPIRED"
)

// Action names an idempotency-guarded operation.
type Action string

const (
	ActionConfirm Action = "CONFIRM"
	ActionRelease Action = "RELEASE"
)

// ReleaseReasonTimeout is stamped by the expiry sweeper.
const ReleaseReasonTimeout = "timeout"

// StockItem is one requested line of a reservation batch, validated at the
// boundary once and passed by value through the engine.
type StockItem struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	Quantity  int    `json:"quantity"`
	Name      string `json:"name,omitempty"`
	// BaseOnly pins resolution to the base product's stock even when a
	// variant id is present.
	BaseOnly bool `json:"baseOnly,omitempty"`
}

// Scope resolves the single stock scope this item draws from. BaseOnly
// discards the variant id so the item can never touch variant-scoped rows.
func (i StockItem) Scope() catalog.StockScope {
	variantID := i.VariantID
	if i.BaseOnly {
		variantID = ""
	}
	return catalog.StockScope{ProductID: i.ProductID, VariantID: variantID, Size: i.Size}
}

// Reservation is a time-boxed hold against one stock scope on behalf of one
// checkout/chat session. The struct doubles as the GORM persistence model;
// scope columns use empty strings rather than NULLs so the active-hold
// uniqueness constraint compares them reliably.
type Reservation struct {
	ID                string    `json:"id" gorm:"primaryKey;size:36"`
	UserID            string    `json:"userId" gorm:"size:64;not null;uniqueIndex:ux_active_hold,where:status = 'RESERVED'"`
	SessionID         string    `json:"sessionId" gorm:"size:128;not null;uniqueIndex:ux_active_hold,where:status = 'RESERVED'"`
	ProductID         string    `json:"productId" gorm:"size:64;not null;uniqueIndex:ux_active_hold,where:status = 'RESERVED'"`
	VariantID         string    `json:"variantId" gorm:"size:64;not null;default:'';uniqueIndex:ux_active_hold,where:status = 'RESERVED'"`
	Size              string    `json:"size" gorm:"size:32;not null;default:'';uniqueIndex:ux_active_hold,where:status = 'RESERVED'"`
	Color             string    `json:"color" gorm:"size:32;not null;default:''"`
	Quantity          int       `json:"quantity" gorm:"not null"`
	AvailableSnapshot int       `json:"availableSnapshot" gorm:"not null"`
	Status            Status    `json:"status" gorm:"size:16;not null;index"`
	Source            string    `json:"source" gorm:"size:16;not null"`
	ExpiresAt         time.Time `json:"expiresAt" gorm:"not null;index"`
	OrderID           string    `json:"orderId,omitempty" gorm:"size:64;not null;default:''"`
	CreatedAt         time.Time `json:"createdAt" gorm:"not null"`
	ConfirmedAt       *time.Time `json:"confirmedAt,omitempty"`
	ReleasedAt        *time.Time `json:"releasedAt,omitempty"`
	ReleaseReason     string     `json:"releaseReason,omitempty" gorm:"size:64;not null;default:''"`
}

// IsExpired reports whether the hold's TTL has elapsed, independent of
// whether the sweeper has transitioned it yet.
func (r *Reservation) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Scope returns the stock scope the reservation holds quantity against.
func (r *Reservation) Scope() catalog.StockScope {
	return catalog.StockScope{ProductID: r.ProductID, VariantID: r.VariantID, Size: r.Size}
}

// IdempotencyEvent records that a keyed confirm/release completed. Presence
// of the key means the action already executed; retries short-circuit
// without re-mutating stock.
type IdempotencyEvent struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	IdempotencyKey string    `json:"idempotencyKey" gorm:"size:128;not null;uniqueIndex"`
	Action         Action    `json:"action" gorm:"size:16;not null"`
	ReservationIDs string    `json:"reservationIds" gorm:"not null"`
	ProductID      string    `json:"productId" gorm:"size:64;not null;default:''"`
	VariantID      string    `json:"variantId" gorm:"size:64;not null;default:''"`
	Size           string    `json:"size" gorm:"size:32;not null;default:''"`
	Quantity       int       `json:"quantity" gorm:"not null"`
	CreatedAt      time.Time `json:"createdAt" gorm:"not null"`
}

// Audit actions, one per stock-affecting reservation transition.
const (
	AuditActionCreated   = "reservation_created"
	AuditActionConfirmed = "reservation_confirmed"
	AuditActionReleased  = "reservation_released"
)

// AuditEntry is one append-only record of a stock-affecting action. Entries
// are never updated or deleted and never consulted for control flow; they
// exist so stock history can be reconstructed after the fact.
type AuditEntry struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Action         string    `json:"action" gorm:"size:32;not null;index"`
	ReservationID  string    `json:"reservationId" gorm:"size:36;not null;index"`
	UserID         string    `json:"userId" gorm:"size:64;not null;index"`
	ProductID      string    `json:"productId" gorm:"size:64;not null"`
	VariantID      string    `json:"variantId" gorm:"size:64;not null;default:''"`
	Size           string    `json:"size" gorm:"size:32;not null;default:''"`
	QuantityChange int       `json:"quantityChange" gorm:"not null"`
	StockBefore    int       `json:"stockBefore" gorm:"not null"`
	StockAfter     int       `json:"stockAfter" gorm:"not null"`
	Source         string    `json:"source" gorm:"size:16;not null;default:''"`
	CorrelationID  string    `json:"correlationId" gorm:"size:128;not null;default:''"`
	CreatedAt      time.Time `json:"createdAt" gorm:"not null"`
}

// ShortItem describes one line that could not be satisfied: what was asked
// for versus what was effectively available when checked.
type ShortItem struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Size      string `json:"size,omitempty"`
	Name      string `json:"name,omitempty"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// ValidationResult is the outcome of an advisory stock check. Either every
// item fits (Available true, Items carries the validated batch) or Short
// lists each failing line; there is no partial success.
type ValidationResult struct {
	Available bool        `json:"available"`
	Items     []StockItem `json:"items,omitempty"`
	Short     []ShortItem `json:"short,omitempty"`
}

// ReserveResult is the outcome of ValidateAndReserve. When Reserved is false
// no reservation rows exist for any item of the batch and Short explains the
// shortfall.
type ReserveResult struct {
	Reserved       bool      `json:"reserved"`
	ReservationIDs []string  `json:"reservationIds,omitempty"`
	ExpiresAt      time.Time `json:"expiresAt,omitempty"`
	Channel        Channel   `json:"channel,omitempty"`
	Short          []ShortItem `json:"short,omitempty"`
}
