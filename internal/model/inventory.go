package model

import "time"

// InventoryKey identifies one stock line. Variant is the canonical variant
// key; an empty Variant is a product without variants.
type InventoryKey struct {
	ProductID string `json:"productId"`
	Variant   string `json:"variant"`
}

// InventoryRecord is the durable quantity for one (product, variant) line.
type InventoryRecord struct {
	ProductID string    `json:"productId"`
	Variant   string    `json:"variant"`
	Qty       int       `json:"qty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Key returns the record's inventory key.
func (r InventoryRecord) Key() InventoryKey {
	return InventoryKey{ProductID: r.ProductID, Variant: r.Variant}
}

// QtyChange is the committed before/after pair of a single quantity write.
type QtyChange struct {
	Prev int `json:"prevQty"`
	Next int `json:"nextQty"`
}

// ReconcileRow joins one catalog line with its inventory and subscriber state.
type ReconcileRow struct {
	ProductID        string `json:"productId"`
	ProductName      string `json:"productName"`
	Variant          string `json:"variant,omitempty"`
	VariantLabel     string `json:"variantLabel,omitempty"`
	Qty              int    `json:"qty"`
	Subscribers      int    `json:"subscribers"`
	MissingInventory bool   `json:"missingInventory"`
}
