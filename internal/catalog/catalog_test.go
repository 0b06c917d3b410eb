package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"storefront-restock-api/internal/cache"
	"storefront-restock-api/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `{
  "products": [
    {"id": "fl-01", "name": "Blue Dream", "slug": "blue-dream",
     "variants": [{"id": "3.5 G", "label": "Eighth"}, {"id": "7g", "label": "Quarter"}]},
    {"id": "tee", "name": "Logo Tee", "slug": "logo-tee"}
  ]
}`

func TestParse_Valid(t *testing.T) {
	c, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)

	p, err := c.Lookup(context.Background(), "fl-01")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Blue Dream", p.Name)
	assert.Equal(t, "Eighth", VariantLabel(p, "3.5g"))
	assert.Equal(t, "", VariantLabel(p, "1g"))

	missing, err := c.Lookup(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestParse_RejectsUnknownShapes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not an object", `[]`},
		{"missing products", `{}`},
		{"legacy field names", `{"products":[{"productId":"a","title":"A","handle":"a"}]}`},
		{"variant without id", `{"products":[{"id":"a","name":"A","slug":"a","variants":[{"label":"x"}]}]}`},
		{"duplicate product", `{"products":[{"id":"a","name":"A","slug":"a"},{"id":"a","name":"B","slug":"b"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMapping))
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	products, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestKeys(t *testing.T) {
	c, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)
	products, _ := c.List(context.Background())

	assert.Equal(t, []model.InventoryKey{
		{ProductID: "fl-01", Variant: "3.5g"},
		{ProductID: "fl-01", Variant: "7g"},
		{ProductID: "tee", Variant: ""},
	}, Keys(products))
}

func TestMySQLCatalog_Lookup(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, slug FROM products WHERE id = ?`)).
		WithArgs("fl-01").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug"}).AddRow("fl-01", "Blue Dream", "blue-dream"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT variant_id, label FROM product_variants`)).
		WithArgs("fl-01").
		WillReturnRows(sqlmock.NewRows([]string{"variant_id", "label"}).AddRow("3.5g", "Eighth"))

	p, err := NewMySQLCatalog(db).Lookup(context.Background(), "fl-01")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, []model.ProductVariant{{ID: "3.5g", Label: "Eighth"}}, p.Variants)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLCatalog_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM products p`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "variant_id", "label"}).
			AddRow("fl-01", "Blue Dream", "blue-dream", "3.5g", "Eighth").
			AddRow("fl-01", "Blue Dream", "blue-dream", "7g", "Quarter").
			AddRow("tee", "Logo Tee", "logo-tee", nil, nil))

	products, err := NewMySQLCatalog(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Len(t, products[0].Variants, 2)
	assert.Empty(t, products[1].Variants)
}

type countingLookup struct {
	next  Lookup
	calls int
}

func (c *countingLookup) Lookup(ctx context.Context, id string) (*model.Product, error) {
	c.calls++
	return c.next.Lookup(ctx, id)
}

func (c *countingLookup) List(ctx context.Context) ([]model.Product, error) {
	return c.next.List(ctx)
}

func TestCachedCatalog(t *testing.T) {
	base, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)
	counting := &countingLookup{next: base}

	mem := cache.NewMemoryCache(0)
	defer mem.Close()
	c := NewCachedCatalog(counting, mem, time.Minute, nil)

	for i := 0; i < 3; i++ {
		p, err := c.Lookup(context.Background(), "fl-01")
		require.NoError(t, err)
		assert.Equal(t, "Blue Dream", p.Name)
	}
	assert.Equal(t, 1, counting.calls)

	for i := 0; i < 2; i++ {
		p, err := c.Lookup(context.Background(), "ghost")
		require.NoError(t, err)
		assert.Nil(t, p)
	}
	assert.Equal(t, 3, counting.calls)
}
