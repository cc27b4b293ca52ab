package catalog

// StockScope identifies which stock figure a quantity belongs to. Base and
// variant scopes are disjoint: a variant-scoped figure is never satisfied by
// base-product stock, and vice versa.
type StockScope struct {
	ProductID string
	VariantID string // empty for base-product scope
	Size      string // empty for scalar (non-sized) stock
}

// VariantSnapshot is the read-only view of one product variant's stock at a
// point in time.
type VariantSnapshot struct {
	VariantID   string
	Name        string
	IsAvailable bool
	// Stock is the variant's scalar quantity. Nil means the variant does not
	// track scalar stock.
	Stock *int
	// SizeStocks maps size label to quantity. When non-empty it takes
	// precedence over the scalar Stock figure.
	SizeStocks map[string]int
}

// ProductSnapshot is the read-only view of a product's stock used by the
// availability calculator. It is a plain value: the calculator never mutates
// it and holds no locks over it.
type ProductSnapshot struct {
	ProductID   string
	Name        string
	IsAvailable bool
	// Stock is the base product's scalar quantity; nil when untracked.
	Stock *int
	// SizeStocks is the base product's own size-stock map. It is evaluated
	// independently of any variants: a product can offer base-scoped and
	// variant-scoped sizes at the same time.
	SizeStocks map[string]int
	Variants   []VariantSnapshot
}

// Tracked reports whether the product carries any stock-tracking fields at
// all. Untracked products are treated as always sellable for backward
// compatibility with catalogs created before stock tracking existed.
func (p *ProductSnapshot) Tracked() bool {
	if p.Stock != nil || len(p.SizeStocks) > 0 {
		return true
	}
	for _, v := range p.Variants {
		if v.Stock != nil || len(v.SizeStocks) > 0 {
			return true
		}
	}
	return false
}

// Selection names one purchasable combination a caller wants resolved.
type Selection struct {
	VariantID string
	Size      string
	// BaseOnly forces resolution against the base product's figures even when
	// a VariantID is present.
	BaseOnly bool
}

// Option is one purchasable (variant, size) combination with its effective
// stock after subtracting in-flight reservations. Name is the variant's
// display name for variant-scoped options, the product's otherwise.
type Option struct {
	ProductID      string `json:"productId"`
	VariantID      string `json:"variantId,omitempty"`
	Size           string `json:"size,omitempty"`
	Name           string `json:"name,omitempty"`
	EffectiveStock int    `json:"effectiveStock"`
}

// ReservedQuantities maps a stock scope to the quantity currently held by
// active reservations against it.
type ReservedQuantities map[StockScope]int
