package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"storefront-restock-api/internal/model"

	"github.com/xeipuuv/gojsonschema"
)

// documentSchema is the only accepted catalog document shape.
const documentSchema = `{
  "type": "object",
  "required": ["products"],
  "additionalProperties": false,
  "properties": {
    "products": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "name", "slug"],
        "additionalProperties": false,
        "properties": {
          "id":   {"type": "string", "minLength": 1},
          "name": {"type": "string", "minLength": 1},
          "slug": {"type": "string", "minLength": 1},
          "variants": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["id", "label"],
              "additionalProperties": false,
              "properties": {
                "id":    {"type": "string", "minLength": 1},
                "label": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

type document struct {
	Products []model.Product `json:"products"`
}

// FileCatalog is a static catalog loaded from a JSON document.
type FileCatalog struct {
	products []model.Product
	byID     map[string]int
}

// LoadFile reads and validates a catalog document from disk.
func LoadFile(path string) (*FileCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse validates data against the catalog schema and indexes it. Any shape
// violation is reported once as ErrMapping.
func Parse(data []byte) (*FileCatalog, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMapping, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrMapping, strings.Join(msgs, "; "))
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMapping, err)
	}

	c := &FileCatalog{products: doc.Products, byID: make(map[string]int, len(doc.Products))}
	for i, p := range doc.Products {
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate product id %q", ErrMapping, p.ID)
		}
		c.byID[p.ID] = i
	}
	return c, nil
}

// Lookup returns the product or nil.
func (c *FileCatalog) Lookup(_ context.Context, productID string) (*model.Product, error) {
	i, ok := c.byID[productID]
	if !ok {
		return nil, nil
	}
	p := c.products[i]
	return &p, nil
}

// List returns every product.
func (c *FileCatalog) List(_ context.Context) ([]model.Product, error) {
	out := make([]model.Product, len(c.products))
	copy(out, c.products)
	return out, nil
}

var _ Lookup = (*FileCatalog)(nil)
