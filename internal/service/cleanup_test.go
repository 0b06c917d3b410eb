package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront-restock-api/internal/model"
	"storefront-restock-api/internal/repository"
)

func TestCleanupCoordinator_DeletesOnlySucceededForKey(t *testing.T) {
	ctx := context.Background()
	reg := repository.NewMemorySubscriptionRepository()
	a, _ := reg.Add(ctx, "P", "1g", "a@x")
	b, _ := reg.Add(ctx, "P", "1g", "b@x")
	other, _ := reg.Add(ctx, "P", "2g", "c@x")

	c := NewCleanupCoordinator(reg, zap.NewNop())
	key := model.InventoryKey{ProductID: "P", Variant: "1g"}

	deleted, err := c.DeleteSucceeded(ctx, key, model.DispatchResult{
		Matched:      2,
		Emailed:      1,
		SendErrors:   1,
		SucceededIDs: []string{a.ID, other.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	left, err := reg.FindMatches(ctx, "P", "1g")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, b.ID, left[0].ID)

	n, err := reg.Count(ctx, "P", "2g")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCleanupCoordinator_NothingSucceeded(t *testing.T) {
	reg := repository.NewMemorySubscriptionRepository()
	_, _ = reg.Add(context.Background(), "P", "", "a@x")

	deleted, err := NewCleanupCoordinator(reg, nil).DeleteSucceeded(context.Background(),
		model.InventoryKey{ProductID: "P"}, model.DispatchResult{Matched: 1, SendErrors: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)

	n, _ := reg.Count(context.Background(), "P", "")
	assert.Equal(t, 1, n)
}

func TestBackfillScheduler_RunNow(t *testing.T) {
	f := newFixture(t)
	s := NewBackfillScheduler(f.svc, BackfillConfig{Interval: time.Hour}, zap.NewNop())

	res, err := s.RunNow()
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created)

	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}

func TestBackfillScheduler_Periodic(t *testing.T) {
	f := newFixture(t)
	s := NewBackfillScheduler(f.svc, BackfillConfig{
		Interval:     10 * time.Millisecond,
		InitialDelay: time.Millisecond,
	}, zap.NewNop())
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		recs, err := f.store.List(context.Background())
		return err == nil && len(recs) == 3
	}, time.Second, 5*time.Millisecond)
}

func TestBackfillScheduler_DisabledIsNoop(t *testing.T) {
	f := newFixture(t)
	s := NewBackfillScheduler(f.svc, BackfillConfig{}, nil)
	s.Start()
	s.Stop()

	recs, err := f.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
}
