package model

// Product is the read-only catalog metadata used for rendering notifications.
type Product struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Slug     string           `json:"slug"`
	Variants []ProductVariant `json:"variants"`
}

// ProductVariant is one purchasable variant of a catalog product.
type ProductVariant struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}
