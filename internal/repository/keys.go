package repository

import (
	"strings"

	"storefront-restock-api/internal/model"
	"storefront-restock-api/internal/variant"
)

// subscriptionKey resolves the canonical key of a stored subscription. Rows
// written before canonicalization existed may carry "productId:variant" in
// the product column and free-form text in the variant column.
func subscriptionKey(productID, rawVariant string) model.InventoryKey {
	if pid, v, ok := variant.SplitComposite(productID); ok {
		if v == "" {
			v = variant.Canonical(rawVariant)
		}
		return model.InventoryKey{ProductID: pid, Variant: v}
	}
	return model.InventoryKey{
		ProductID: variant.ProductID(productID),
		Variant:   variant.Canonical(rawVariant),
	}
}

// escapeLike escapes LIKE wildcards so product ids are matched literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
