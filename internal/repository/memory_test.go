package repository

import (
	"context"
	"testing"
	"time"

	"storefront-restock-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nowForTest() time.Time {
	return time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)
}

func TestMemorySubscriptions_NullVariantNeverMatchesVariant(t *testing.T) {
	ctx := context.Background()
	reg := NewMemorySubscriptionRepository()

	plain, err := reg.Add(ctx, "P", "", "a@x.com")
	require.NoError(t, err)
	sized, err := reg.Add(ctx, "P", "3.5g", "b@x.com")
	require.NoError(t, err)

	matches, err := reg.FindMatches(ctx, "P", "3.5g")
	require.NoError(t, err)
	assert.Equal(t, []string{sized.ID}, ids(matches))

	matches, err = reg.FindMatches(ctx, "P", "")
	require.NoError(t, err)
	assert.Equal(t, []string{plain.ID}, ids(matches))
}

func TestMemorySubscriptions_DuplicatesAreKept(t *testing.T) {
	ctx := context.Background()
	reg := NewMemorySubscriptionRepository()

	_, _ = reg.Add(ctx, "P", "1g", "a@x.com")
	_, _ = reg.Add(ctx, "P", "1g", "a@x.com")

	n, err := reg.Count(ctx, "P", "1g")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMemorySubscriptions_LegacyCompositeAndScopedDelete(t *testing.T) {
	ctx := context.Background()
	reg := NewMemorySubscriptionRepository()
	reg.Insert(model.Subscription{ID: "old", ProductID: "P:1 G", Email: "a@x.com", CreatedAt: nowForTest()})
	reg.Insert(model.Subscription{ID: "elsewhere", ProductID: "Q", Variant: "1g", Email: "b@x.com", CreatedAt: nowForTest()})

	matches, err := reg.FindMatches(ctx, "P", "1g")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "old", matches[0].ID)

	n, err := reg.DeleteByIDs(ctx, "P", "1g", []string{"old", "elsewhere"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left, err := reg.Count(ctx, "Q", "1g")
	require.NoError(t, err)
	assert.Equal(t, 1, left)
}

func TestMemoryInventory_BulkCreateMissingTwice(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryInventoryRepository()
	keys := []model.InventoryKey{{ProductID: "P", Variant: "1g"}, {ProductID: "P", Variant: "2g"}}

	created, errs := repo.BulkCreateMissing(ctx, keys)
	assert.Empty(t, errs)
	assert.Equal(t, 2, created)

	created, _ = repo.BulkCreateMissing(ctx, keys)
	assert.Equal(t, 0, created)

	records, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
