package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront-restock-api/internal/catalog"
	"storefront-restock-api/internal/model"
	"storefront-restock-api/internal/notify"
	"storefront-restock-api/internal/repository"
	"storefront-restock-api/internal/variant"
)

const testCatalog = `{
  "products": [
    {"id": "fl-01", "name": "Blue Dream", "slug": "blue-dream",
     "variants": [{"id": "3.5g", "label": "Eighth"}, {"id": "7g", "label": "Quarter"}]},
    {"id": "tee", "name": "Logo Tee", "slug": "logo-tee"}
  ]
}`

type recordingMailer struct {
	mu      sync.Mutex
	fail    map[string]bool
	sent    []string
	subject string
	ctxErrs []error
}

func (m *recordingMailer) Configured() bool { return true }

func (m *recordingMailer) Send(ctx context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	m.subject = subject
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	if m.fail[to] {
		return errors.New("rejected")
	}
	return nil
}

type failingStore struct {
	repository.InventoryStore
}

func (failingStore) SetQty(context.Context, string, string, int) (model.QtyChange, error) {
	return model.QtyChange{}, errors.New("disk full")
}

type fixture struct {
	svc      *RestockService
	store    *repository.MemoryInventoryRepository
	registry *repository.MemorySubscriptionRepository
	mailer   *recordingMailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)

	f := &fixture{
		store:    repository.NewMemoryInventoryRepository(),
		registry: repository.NewMemorySubscriptionRepository(),
		mailer:   &recordingMailer{fail: map[string]bool{}},
	}
	logger := zap.NewNop()
	dispatcher := notify.NewDispatcher(f.mailer, 4, time.Second, logger)
	f.svc = NewRestockService(f.store, f.registry, cat, dispatcher,
		RestockOptions{SiteURL: "https://shop.example.com", StoreName: "Example"}, logger)
	return f
}

func TestSetQty_EndToEndRestock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.store.SetQty(ctx, "fl-01", "3.5g", 0)
	require.NoError(t, err)
	_, err = f.registry.Add(ctx, "fl-01", "3.5g", "alice@x")
	require.NoError(t, err)
	_, err = f.registry.Add(ctx, "fl-01", "3.5g", "bob@x")
	require.NoError(t, err)

	res, err := f.svc.SetQty(ctx, SourceSingle, "fl-01", variant.Ptr("3.5g"), 10)
	require.NoError(t, err)

	assert.Equal(t, 0, res.PrevQty)
	assert.Equal(t, 10, res.NextQty)
	assert.True(t, res.Notified)
	assert.Equal(t, 2, res.Matched)
	assert.Equal(t, 2, res.Emailed)
	assert.Equal(t, 0, res.SendErrors)
	assert.Equal(t, 2, res.Deleted)
	assert.Equal(t, "Blue Dream (Eighth) is back in stock", f.mailer.subject)

	n, err := f.registry.Count(ctx, "fl-01", "3.5g")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSetQty_PartialFailureKeepsFailedSubscription(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mailer.fail["bob@x"] = true

	for _, e := range []string{"alice@x", "bob@x", "carol@x"} {
		_, err := f.registry.Add(ctx, "fl-01", "7g", e)
		require.NoError(t, err)
	}

	res, err := f.svc.SetQty(ctx, SourceBulk, "fl-01", variant.Ptr("7 G"), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Matched)
	assert.Equal(t, 2, res.Emailed)
	assert.Equal(t, 1, res.SendErrors)

	left, err := f.registry.FindMatches(ctx, "fl-01", "7g")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "bob@x", left[0].Email)
}

func TestSetQty_PositiveToPositiveDoesNotNotify(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.SetQty(ctx, SourceSingle, "tee", nil, 5)
	require.NoError(t, err)
	_, err = f.registry.Add(ctx, "tee", "", "a@x")
	require.NoError(t, err)

	res, err := f.svc.SetQty(ctx, SourceSingle, "tee", nil, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, res.PrevQty)
	assert.False(t, res.Notified)
	assert.Equal(t, 0, res.Matched)
	assert.Empty(t, f.mailer.sent)
}

func TestSetQty_NullVariantIsolation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.registry.Add(ctx, "fl-01", "", "plain@x")
	require.NoError(t, err)

	res, err := f.svc.SetQty(ctx, SourceSingle, "fl-01", variant.Ptr("3.5g"), 1)
	require.NoError(t, err)
	assert.True(t, res.Notified)
	assert.Equal(t, 0, res.Matched)
	assert.Empty(t, f.mailer.sent)
}

func TestSetQty_StorageFailureSkipsNotification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.registry.Add(ctx, "tee", "", "a@x")
	require.NoError(t, err)

	svc := NewRestockService(failingStore{f.store}, f.registry, nil,
		notify.NewDispatcher(f.mailer, 1, 0, nil), RestockOptions{}, nil)

	_, err = svc.SetQty(ctx, SourceSingle, "tee", nil, 4)
	require.Error(t, err)
	assert.Empty(t, f.mailer.sent)

	n, err := f.registry.Count(ctx, "tee", "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSetQty_ClientCancelDoesNotStopSends(t *testing.T) {
	f := newFixture(t)
	_, err := f.registry.Add(context.Background(), "tee", "", "a@x")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.svc.SetQty(ctx, SourceSingle, "tee", nil, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Emailed)
	require.Len(t, f.mailer.ctxErrs, 1)
	assert.NoError(t, f.mailer.ctxErrs[0])
}

func TestSetQty_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SetQty(context.Background(), SourceSingle, "  ", nil, 1)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.SetQty(context.Background(), SourceSingle, "tee", nil, -1)
	assert.ErrorIs(t, err, ErrValidation)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "qty", ve.Field)

	recs, err := f.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestTransitionSequenceFiresOncePerRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var fired []int
	for i, q := range []int{5, 0, 6, 9, 0, 0, 3, 3, 0, 1} {
		res, err := f.svc.SetQty(ctx, SourceSingle, "tee", nil, q)
		require.NoError(t, err)
		if res.Notified {
			fired = append(fired, i)
		}
	}
	assert.Equal(t, []int{0, 2, 6, 9}, fired)
}

func TestResetQty_NeverNotifies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.SetQty(ctx, SourceBulk, "tee", nil, 4)
	require.NoError(t, err)

	res, err := f.svc.ResetQty(ctx, SourceBulk, "tee", nil)
	require.NoError(t, err)
	assert.Equal(t, 4, res.PrevQty)
	assert.Equal(t, 0, res.NextQty)
	assert.False(t, res.Notified)
}

func TestNotify_ForcesPassWithoutChangingQty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.store.SetQty(ctx, "fl-01", "7g", 8)
	require.NoError(t, err)
	_, err = f.registry.Add(ctx, "fl-01", "7g", "a@x")
	require.NoError(t, err)

	res, err := f.svc.Notify(ctx, "fl-01", variant.Ptr("7g"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, 1, res.Emailed)
	assert.Equal(t, 1, res.Deleted)

	qty, err := f.store.Get(ctx, "fl-01", "7g")
	require.NoError(t, err)
	assert.Equal(t, 8, qty)
}

func TestCreateMissing_Twice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.store.SetQty(ctx, "fl-01", "7g", 2)
	require.NoError(t, err)

	first, err := f.svc.CreateMissing(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Declared)
	assert.Equal(t, 2, first.Created)

	second, err := f.svc.CreateMissing(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)

	recs, err := f.store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	qty, err := f.store.Get(ctx, "fl-01", "7g")
	require.NoError(t, err)
	assert.Equal(t, 2, qty)
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.store.SetQty(ctx, "fl-01", "3.5g", 4)
	require.NoError(t, err)
	_, err = f.registry.Add(ctx, "tee", "", "a@x")
	require.NoError(t, err)
	_, err = f.registry.Add(ctx, "tee", "", "b@x")
	require.NoError(t, err)

	rows, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	byKey := map[model.InventoryKey]model.ReconcileRow{}
	for _, r := range rows {
		byKey[model.InventoryKey{ProductID: r.ProductID, Variant: r.Variant}] = r
	}

	eighth := byKey[model.InventoryKey{ProductID: "fl-01", Variant: "3.5g"}]
	assert.Equal(t, 4, eighth.Qty)
	assert.Equal(t, "Eighth", eighth.VariantLabel)
	assert.False(t, eighth.MissingInventory)

	quarter := byKey[model.InventoryKey{ProductID: "fl-01", Variant: "7g"}]
	assert.True(t, quarter.MissingInventory)
	assert.Equal(t, 0, quarter.Qty)

	tee := byKey[model.InventoryKey{ProductID: "tee"}]
	assert.Equal(t, 2, tee.Subscribers)
	assert.Equal(t, "Logo Tee", tee.ProductName)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sub, err := f.svc.Subscribe(ctx, "fl-01", variant.Ptr("3.5 G"), " Alice@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "3.5g", sub.Variant)
	assert.Equal(t, "alice@example.com", sub.Email)

	_, err = f.svc.Subscribe(ctx, "fl-01", variant.Ptr("3.5g"), "not-an-email")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.SetQty(ctx, SourceSingle, "tee", nil, 1)
	require.NoError(t, err)
	_, err = f.svc.Subscribe(ctx, "tee", nil, "a@example.com")
	assert.ErrorIs(t, err, ErrInStock)
}

func TestStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.Stock(ctx, "fl-01", variant.Ptr("7g"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Qty)
	assert.False(t, res.InStock)

	_, err = f.svc.SetQty(ctx, SourceSingle, "fl-01", variant.Ptr("7g"), 3)
	require.NoError(t, err)

	res, err = f.svc.Stock(ctx, "fl-01", variant.Ptr("7G"))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Qty)
	assert.True(t, res.InStock)
	assert.Equal(t, "7g", *res.Variant)
}

type downCatalog struct{}

func (downCatalog) Lookup(context.Context, string) (*model.Product, error) {
	return nil, errors.New("catalog db: connection refused")
}

func (downCatalog) List(context.Context) ([]model.Product, error) {
	return nil, errors.New("catalog db: connection refused")
}

type stuckRegistry struct {
	repository.SubscriptionRegistry
}

func (stuckRegistry) DeleteByIDs(context.Context, string, string, []string) (int, error) {
	return 0, errors.New("database is locked")
}

func TestSetQty_CatalogDownUsesRawIdentifiers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.registry.Add(ctx, "fl-01", "3.5g", "a@x")
	require.NoError(t, err)

	svc := NewRestockService(f.store, f.registry, downCatalog{},
		notify.NewDispatcher(f.mailer, 1, time.Second, nil), RestockOptions{}, nil)

	res, err := svc.SetQty(ctx, SourceSingle, "fl-01", variant.Ptr("3.5g"), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Emailed)
	assert.Equal(t, 1, res.Deleted)
	assert.Equal(t, []string{"a@x"}, f.mailer.sent)
	assert.Equal(t, "fl-01 (3.5g) is back in stock", f.mailer.subject)

	// Public reads stay available while the catalog is down.
	stock, err := svc.Stock(ctx, "fl-01", variant.Ptr("3.5g"))
	require.NoError(t, err)
	assert.Equal(t, 2, stock.Qty)
}

func TestPass_CleanupFailureIsReported(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.registry.Add(ctx, "tee", "", "a@x")
	require.NoError(t, err)

	svc := NewRestockService(f.store, stuckRegistry{f.registry}, nil,
		notify.NewDispatcher(f.mailer, 1, time.Second, nil), RestockOptions{}, nil)

	res, err := svc.SetQty(ctx, SourceSingle, "tee", nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Emailed)
	assert.Equal(t, 0, res.Deleted)
	assert.True(t, res.CleanupFailed)

	nres, err := svc.Notify(ctx, "tee", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, nres.Emailed)
	assert.True(t, nres.CleanupFailed)

	n, err := f.registry.Count(ctx, "tee", "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStockAndSubscribe_UnknownProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Stock(ctx, "no-such-product", nil)
	assert.ErrorIs(t, err, ErrUnknownProduct)

	_, err = f.svc.Subscribe(ctx, "no-such-product", nil, "a@example.com")
	assert.ErrorIs(t, err, ErrUnknownProduct)

	n, err := f.registry.Count(ctx, "no-such-product", "")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// Admin writes are never gated on the catalog.
	_, err = f.svc.SetQty(ctx, SourceSingle, "no-such-product", nil, 1)
	require.NoError(t, err)

	noCatalog := NewRestockService(f.store, f.registry, nil,
		notify.NewDispatcher(f.mailer, 1, 0, nil), RestockOptions{}, nil)
	res, err := noCatalog.Stock(ctx, "no-such-product", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Qty)
}
