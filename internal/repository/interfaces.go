package repository

import (
	"context"

	"storefront-restock-api/internal/model"
)

// InventoryStore is the durable quantity state per (productId, variant).
// Callers pass canonical variant keys; "" is the null variant.
type InventoryStore interface {
	// Get returns the current quantity, 0 when no record exists.
	Get(ctx context.Context, productID, variant string) (int, error)

	// SetQty reads the previous quantity and writes the new one as one atomic
	// unit. A missing record reads as 0 and is created.
	SetQty(ctx context.Context, productID, variant string, qty int) (model.QtyChange, error)

	// ResetQty is SetQty(..., 0).
	ResetQty(ctx context.Context, productID, variant string) (model.QtyChange, error)

	// BulkCreateMissing creates a zero-quantity record for every key that has
	// none. Existing records are never touched; one failing key does not stop
	// the others.
	BulkCreateMissing(ctx context.Context, keys []model.InventoryKey) (int, []error)

	// List returns every inventory record.
	List(ctx context.Context) ([]model.InventoryRecord, error)

	// Stats returns statistics about the inventory database.
	Stats(ctx context.Context) (map[string]interface{}, error)
}

// SubscriptionRegistry stores back-in-stock requests.
type SubscriptionRegistry interface {
	// Add stores a new subscription. No uniqueness is enforced.
	Add(ctx context.Context, productID, variant, email string) (model.Subscription, error)

	// FindMatches returns every subscription for the key, including legacy
	// composite-key rows. The returned records carry the canonical key.
	FindMatches(ctx context.Context, productID, variant string) ([]model.Subscription, error)

	// DeleteByIDs deletes the given ids, restricted to rows that match the key.
	DeleteByIDs(ctx context.Context, productID, variant string, ids []string) (int, error)

	// Count returns the number of subscriptions matching the key.
	Count(ctx context.Context, productID, variant string) (int, error)

	// CountByKey returns subscriber counts grouped by canonical key.
	CountByKey(ctx context.Context) (map[model.InventoryKey]int, error)
}
