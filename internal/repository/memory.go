package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"storefront-restock-api/internal/model"
	"storefront-restock-api/pkg/uid"
)

// MemoryInventoryRepository is an in-process InventoryStore. It backs tests
// and STORE_TYPE=memory.
type MemoryInventoryRepository struct {
	mu      sync.Mutex
	records map[model.InventoryKey]model.InventoryRecord
}

// NewMemoryInventoryRepository creates an empty in-memory inventory store.
func NewMemoryInventoryRepository() *MemoryInventoryRepository {
	return &MemoryInventoryRepository{records: make(map[model.InventoryKey]model.InventoryRecord)}
}

func (r *MemoryInventoryRepository) Get(_ context.Context, productID, variant string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[model.InventoryKey{ProductID: productID, Variant: variant}].Qty, nil
}

func (r *MemoryInventoryRepository) SetQty(_ context.Context, productID, variant string, qty int) (model.QtyChange, error) {
	if qty < 0 {
		return model.QtyChange{}, fmt.Errorf("negative quantity %d", qty)
	}
	key := model.InventoryKey{ProductID: productID, Variant: variant}

	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.records[key].Qty
	r.records[key] = model.InventoryRecord{ProductID: productID, Variant: variant, Qty: qty, UpdatedAt: time.Now().UTC()}
	return model.QtyChange{Prev: prev, Next: qty}, nil
}

func (r *MemoryInventoryRepository) ResetQty(ctx context.Context, productID, variant string) (model.QtyChange, error) {
	return r.SetQty(ctx, productID, variant, 0)
}

func (r *MemoryInventoryRepository) BulkCreateMissing(_ context.Context, keys []model.InventoryKey) (int, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	created := 0
	for _, k := range keys {
		if _, ok := r.records[k]; ok {
			continue
		}
		r.records[k] = model.InventoryRecord{ProductID: k.ProductID, Variant: k.Variant, UpdatedAt: time.Now().UTC()}
		created++
	}
	return created, nil
}

func (r *MemoryInventoryRepository) List(_ context.Context) ([]model.InventoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.InventoryRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].Variant < out[j].Variant
	})
	return out, nil
}

func (r *MemoryInventoryRepository) Stats(_ context.Context) (map[string]interface{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return map[string]interface{}{"inventory_rows": int64(len(r.records))}, nil
}

// MemorySubscriptionRepository is an in-process SubscriptionRegistry.
type MemorySubscriptionRepository struct {
	mu   sync.Mutex
	subs []model.Subscription
}

// NewMemorySubscriptionRepository creates an empty in-memory registry.
func NewMemorySubscriptionRepository() *MemorySubscriptionRepository {
	return &MemorySubscriptionRepository{}
}

func (r *MemorySubscriptionRepository) Add(_ context.Context, productID, variant, email string) (model.Subscription, error) {
	sub := model.Subscription{ID: uid.New(), ProductID: productID, Variant: variant, Email: email, CreatedAt: time.Now().UTC()}
	r.mu.Lock()
	r.subs = append(r.subs, sub)
	r.mu.Unlock()
	return sub, nil
}

// Insert stores a raw record as-is. Used to seed legacy rows.
func (r *MemorySubscriptionRepository) Insert(sub model.Subscription) {
	r.mu.Lock()
	r.subs = append(r.subs, sub)
	r.mu.Unlock()
}

func (r *MemorySubscriptionRepository) FindMatches(_ context.Context, productID, variant string) ([]model.Subscription, error) {
	want := model.InventoryKey{ProductID: productID, Variant: variant}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Subscription
	for _, s := range r.subs {
		key := subscriptionKey(s.ProductID, s.Variant)
		if key != want {
			continue
		}
		s.ProductID, s.Variant = key.ProductID, key.Variant
		out = append(out, s)
	}
	return out, nil
}

func (r *MemorySubscriptionRepository) DeleteByIDs(_ context.Context, productID, variant string, ids []string) (int, error) {
	want := model.InventoryKey{ProductID: productID, Variant: variant}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.subs[:0]
	deleted := 0
	for _, s := range r.subs {
		if _, ok := drop[s.ID]; ok && subscriptionKey(s.ProductID, s.Variant) == want {
			deleted++
			continue
		}
		kept = append(kept, s)
	}
	r.subs = kept
	return deleted, nil
}

func (r *MemorySubscriptionRepository) Count(ctx context.Context, productID, variant string) (int, error) {
	m, err := r.FindMatches(ctx, productID, variant)
	return len(m), err
}

func (r *MemorySubscriptionRepository) CountByKey(_ context.Context) (map[model.InventoryKey]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[model.InventoryKey]int)
	for _, s := range r.subs {
		out[subscriptionKey(s.ProductID, s.Variant)]++
	}
	return out, nil
}

var (
	_ InventoryStore       = (*MemoryInventoryRepository)(nil)
	_ SubscriptionRegistry = (*MemorySubscriptionRepository)(nil)
)
