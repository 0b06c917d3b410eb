package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"storefront-restock-api/internal/model"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLCatalog reads products from the storefront's MySQL database.
type MySQLCatalog struct {
	db *sql.DB
}

// NewMySQLCatalog creates a catalog on an open MySQL handle.
func NewMySQLCatalog(db *sql.DB) *MySQLCatalog {
	return &MySQLCatalog{db: db}
}

// Lookup returns the product or nil when no active product has that id.
func (c *MySQLCatalog) Lookup(ctx context.Context, productID string) (*model.Product, error) {
	var p model.Product
	err := c.db.QueryRowContext(ctx,
		`SELECT id, name, slug FROM products WHERE id = ? AND is_active = 1 LIMIT 1`,
		productID).Scan(&p.ID, &p.Name, &p.Slug)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT variant_id, label FROM product_variants WHERE product_id = ? ORDER BY position, variant_id`,
		productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v model.ProductVariant
		if err := rows.Scan(&v.ID, &v.Label); err != nil {
			return nil, fmt.Errorf("failed to scan product variant: %w", err)
		}
		p.Variants = append(p.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns every active product with its variants.
func (c *MySQLCatalog) List(ctx context.Context) ([]model.Product, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.slug, v.variant_id, v.label
		FROM products p
		LEFT JOIN product_variants v ON v.product_id = p.id
		WHERE p.is_active = 1
		ORDER BY p.id, v.position, v.variant_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		var (
			id, name, slug string
			vid, label     sql.NullString
		)
		if err := rows.Scan(&id, &name, &slug, &vid, &label); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		if id == "" {
			return nil, fmt.Errorf("%w: product row without id", ErrMapping)
		}
		if len(out) == 0 || out[len(out)-1].ID != id {
			out = append(out, model.Product{ID: id, Name: name, Slug: slug})
		}
		if vid.Valid && vid.String != "" {
			last := &out[len(out)-1]
			last.Variants = append(last.Variants, model.ProductVariant{ID: vid.String, Label: label.String})
		}
	}
	return out, rows.Err()
}

var _ Lookup = (*MySQLCatalog)(nil)
