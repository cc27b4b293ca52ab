package catalog

// The availability calculator is the advisory, read-only half of the stock
// subsystem: it computes what is sellable from an in-memory snapshot plus the
// quantities held by active reservations. It is never authoritative for
// mutation decisions; the reservation engine re-validates under row locks.

// StockForSelection resolves exactly one stock figure for a selection,
// honoring scope isolation: a variant selection consults only that variant's
// own figures (a size absent from the variant's map resolves to 0, it never
// falls back to the base product), and a base-only selection consults only
// the base product's figures. Absent keys resolve to 0 rather than an error.
func StockForSelection(p *ProductSnapshot, sel Selection) int {
	if sel.BaseOnly || sel.VariantID == "" {
		return baseStock(p, sel.Size)
	}
	for i := range p.Variants {
		v := &p.Variants[i]
		if v.VariantID != sel.VariantID {
			continue
		}
		if sel.Size != "" {
			return v.SizeStocks[sel.Size]
		}
		if len(v.SizeStocks) > 0 {
			// Sized variant asked without a size: no single figure exists.
			return 0
		}
		if v.Stock != nil {
			return *v.Stock
		}
		return 0
	}
	return 0
}

func baseStock(p *ProductSnapshot, size string) int {
	if size != "" {
		return p.SizeStocks[size]
	}
	if len(p.SizeStocks) > 0 {
		return 0
	}
	if p.Stock != nil {
		return *p.Stock
	}
	return 0
}

// SellableOptions returns every (variant, size) combination with effective
// stock above zero. Variant size stock, when present, shadows the variant's
// scalar stock; base-product size stock is evaluated independently of any
// variants; variants flagged unavailable are excluded regardless of quantity.
func SellableOptions(p *ProductSnapshot, reserved ReservedQuantities) []Option {
	var options []Option

	appendIfSellable := func(scope StockScope, name string, available int) {
		effective := available - reserved[scope]
		if effective > 0 {
			options = append(options, Option{
				ProductID:      scope.ProductID,
				VariantID:      scope.VariantID,
				Size:           scope.Size,
				Name:           name,
				EffectiveStock: effective,
			})
		}
	}

	// Base-scoped figures first.
	if len(p.SizeStocks) > 0 {
		for size, qty := range p.SizeStocks {
			appendIfSellable(StockScope{ProductID: p.ProductID, Size: size}, p.Name, qty)
		}
	} else if p.Stock != nil {
		appendIfSellable(StockScope{ProductID: p.ProductID}, p.Name, *p.Stock)
	}

	for i := range p.Variants {
		v := &p.Variants[i]
		if !v.IsAvailable {
			continue
		}
		name := v.Name
		if name == "" {
			name = p.Name
		}
		if len(v.SizeStocks) > 0 {
			for size, qty := range v.SizeStocks {
				appendIfSellable(StockScope{ProductID: p.ProductID, VariantID: v.VariantID, Size: size}, name, qty)
			}
			continue
		}
		if v.Stock != nil {
			appendIfSellable(StockScope{ProductID: p.ProductID, VariantID: v.VariantID}, name, *v.Stock)
		}
	}

	return options
}

// IsSellable reports whether a product can be offered at all: explicitly
// unavailable products never are, untracked products always are, and tracked
// products are sellable iff at least one combination has effective stock.
func IsSellable(p *ProductSnapshot, reserved ReservedQuantities) bool {
	if !p.IsAvailable {
		return false
	}
	if !p.Tracked() {
		return true
	}
	return len(SellableOptions(p, reserved)) > 0
}

// FilterSellable returns up to max sellable products, short-circuiting the
// scan once the cap is reached so channel display limits don't force a full
// catalog evaluation. A max of zero or below means no cap.
func FilterSellable(products []*ProductSnapshot, reserved ReservedQuantities, max int) []*ProductSnapshot {
	var sellable []*ProductSnapshot
	for _, p := range products {
		if IsSellable(p, reserved) {
			sellable = append(sellable, p)
			if max > 0 && len(sellable) >= max {
				break
			}
		}
	}
	return sellable
}
