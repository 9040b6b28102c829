package cart

import (
	"github.com/shopspring/decimal"
)

// LineItem represents one distinct purchasable variant in the cart.
// VariantID is the unique key within the collection.
type LineItem struct {
	VariantID       string          `json:"variant_id"`
	ProductID       string          `json:"product_id"`
	Title           string          `json:"title"`
	MainImage       string          `json:"main_image,omitempty"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Quantity        int             `json:"quantity"`
	QuantityInStock int             `json:"quantity_in_stock,omitempty"`
}

// Snapshot is the full cart state: the ordered line items and the total
// derived from them. Total is always recomputed from the items, never
// patched incrementally.
type Snapshot struct {
	Items []LineItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// EmptySnapshot returns a snapshot with no items and a zero total.
func EmptySnapshot() Snapshot {
	return Snapshot{Items: []LineItem{}, Total: decimal.Zero}
}

// ComputeTotal sums unit price times quantity over all items.
func ComputeTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// findIndex returns the index of the line item with the given variant ID,
// or -1. An empty variant ID never matches.
func findIndex(items []LineItem, variantID string) int {
	if variantID == "" {
		return -1
	}
	for i := range items {
		if items[i].VariantID == variantID {
			return i
		}
	}
	return -1
}

// Add returns a new snapshot with the item merged in. If an item with the
// same variant ID already exists, the existing record is kept with its
// quantity incremented by one and all other incoming fields discarded.
// Otherwise the incoming item is appended at the end, with quantity
// defaulting to 1 when unset. The input snapshot is not modified.
func Add(s Snapshot, item LineItem) Snapshot {
	items := make([]LineItem, len(s.Items))
	copy(items, s.Items)

	if i := findIndex(items, item.VariantID); i >= 0 {
		merged := items[i]
		merged.Quantity++
		items[i] = merged
	} else {
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		items = append(items, item)
	}

	return Snapshot{Items: items, Total: ComputeTotal(items)}
}

// Remove returns a new snapshot without the line item matching the given
// variant ID. When no item matches, the item collection is unchanged but
// the total is still recomputed, so removal is idempotent. Ordering of the
// remaining items is preserved. The input snapshot is not modified.
func Remove(s Snapshot, variantID string) Snapshot {
	i := findIndex(s.Items, variantID)
	if i < 0 {
		items := make([]LineItem, len(s.Items))
		copy(items, s.Items)
		return Snapshot{Items: items, Total: ComputeTotal(items)}
	}

	items := make([]LineItem, 0, len(s.Items)-1)
	items = append(items, s.Items[:i]...)
	items = append(items, s.Items[i+1:]...)

	return Snapshot{Items: items, Total: ComputeTotal(items)}
}
