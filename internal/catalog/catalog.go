// Package catalog provides read-only product metadata used to render
// notification content. Lookups never gate inventory mutations.
package catalog

import (
	"context"
	"errors"

	"storefront-restock-api/internal/model"
	"storefront-restock-api/internal/variant"
)

// ErrMapping reports a catalog document or row that does not match the schema.
var ErrMapping = errors.New("catalog mapping error")

// Lookup is the catalog collaborator.
type Lookup interface {
	// Lookup returns the product or nil when it is unknown.
	Lookup(ctx context.Context, productID string) (*model.Product, error)

	// List returns every catalog product.
	List(ctx context.Context) ([]model.Product, error)
}

// Keys expands products into the canonical inventory keys they declare. A
// product without variants declares the single null-variant line.
func Keys(products []model.Product) []model.InventoryKey {
	var keys []model.InventoryKey
	seen := make(map[model.InventoryKey]struct{})
	add := func(k model.InventoryKey) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	for _, p := range products {
		pid := variant.ProductID(p.ID)
		if len(p.Variants) == 0 {
			add(model.InventoryKey{ProductID: pid})
			continue
		}
		for _, v := range p.Variants {
			add(model.InventoryKey{ProductID: pid, Variant: variant.Canonical(v.ID)})
		}
	}
	return keys
}

// VariantLabel returns the display label of a canonical variant key, or ""
// when the product does not define it.
func VariantLabel(p *model.Product, key string) string {
	if p == nil || key == "" {
		return ""
	}
	for _, v := range p.Variants {
		if variant.Canonical(v.ID) == key {
			return v.Label
		}
	}
	return ""
}
