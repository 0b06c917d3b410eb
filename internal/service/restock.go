package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"storefront-restock-api/internal/catalog"
	"storefront-restock-api/internal/inventory"
	"storefront-restock-api/internal/metrics"
	"storefront-restock-api/internal/model"
	"storefront-restock-api/internal/notify"
	"storefront-restock-api/internal/repository"
	"storefront-restock-api/internal/variant"
)

// Write sources used for metrics and logs.
const (
	SourceSingle   = "single"
	SourceBulk     = "bulk"
	SourceBackfill = "backfill"
)

// WriteResult is the outcome of one quantity write and its notification pass.
type WriteResult struct {
	ProductID  string  `json:"productId"`
	Variant    *string `json:"variant"`
	PrevQty    int     `json:"prevQty"`
	NextQty    int     `json:"nextQty"`
	Notified   bool    `json:"notified"`
	Matched    int     `json:"matched"`
	Emailed    int     `json:"emailed"`
	SendErrors int     `json:"sendErrors"`
	Deleted    int     `json:"deleted"`
	// CleanupFailed is set when notified subscriptions could not be deleted
	// and will be notified again on the next pass.
	CleanupFailed bool `json:"cleanupFailed,omitempty"`
}

// NotifyResult is the outcome of a forced notification pass.
type NotifyResult struct {
	ProductID     string  `json:"productId"`
	Variant       *string `json:"variant"`
	Matched       int     `json:"matched"`
	Emailed       int     `json:"emailed"`
	SendErrors    int     `json:"sendErrors"`
	Deleted       int     `json:"deleted"`
	CleanupFailed bool    `json:"cleanupFailed,omitempty"`
}

// BackfillResult reports a createMissing run.
type BackfillResult struct {
	Declared int      `json:"declared"`
	Created  int      `json:"created"`
	Errors   []string `json:"errors,omitempty"`
}

// StockResult is the public view of one line.
type StockResult struct {
	ProductID string  `json:"productId"`
	Variant   *string `json:"variant"`
	Qty       int     `json:"qty"`
	InStock   bool    `json:"inStock"`
}

// RestockOptions configures message rendering.
type RestockOptions struct {
	SiteURL   string
	StoreName string
}

// RestockService owns the mutate, detect, fan out and clean up sequence
// shared by every entry point.
type RestockService struct {
	store      repository.InventoryStore
	registry   repository.SubscriptionRegistry
	catalog    catalog.Lookup
	dispatcher *notify.Dispatcher
	cleanup    *CleanupCoordinator
	opts       RestockOptions
	logger     *zap.Logger
}

// NewRestockService creates the service. catalog may be nil.
func NewRestockService(
	store repository.InventoryStore,
	registry repository.SubscriptionRegistry,
	lookup catalog.Lookup,
	dispatcher *notify.Dispatcher,
	opts RestockOptions,
	logger *zap.Logger,
) *RestockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RestockService{
		store:      store,
		registry:   registry,
		catalog:    lookup,
		dispatcher: dispatcher,
		cleanup:    NewCleanupCoordinator(registry, logger),
		opts:       opts,
		logger:     logger.Named("restock"),
	}
}

// SetQty writes qty and, when the committed change is a transition, runs the
// notification pass. A failed write returns an error and sends nothing.
func (s *RestockService) SetQty(ctx context.Context, source, productID string, rawVariant *string, qty int) (*WriteResult, error) {
	key, err := s.key(productID, rawVariant)
	if err != nil {
		return nil, err
	}
	if qty < 0 {
		return nil, invalid("qty", "must be a non-negative integer")
	}

	change, err := s.store.SetQty(ctx, key.ProductID, key.Variant, qty)
	if err != nil {
		metrics.QuantityWriteFailures.WithLabelValues(source).Inc()
		return nil, fmt.Errorf("set qty: %w", err)
	}
	metrics.QuantityWrites.WithLabelValues(source).Inc()

	return s.afterWrite(ctx, source, key, change), nil
}

// ResetQty is SetQty with qty 0. It never notifies.
func (s *RestockService) ResetQty(ctx context.Context, source, productID string, rawVariant *string) (*WriteResult, error) {
	key, err := s.key(productID, rawVariant)
	if err != nil {
		return nil, err
	}

	change, err := s.store.ResetQty(ctx, key.ProductID, key.Variant)
	if err != nil {
		metrics.QuantityWriteFailures.WithLabelValues(source).Inc()
		return nil, fmt.Errorf("reset qty: %w", err)
	}
	metrics.QuantityWrites.WithLabelValues(source).Inc()

	return s.afterWrite(ctx, source, key, change), nil
}

// Notify runs a notification pass for the key without touching quantity.
func (s *RestockService) Notify(ctx context.Context, productID string, rawVariant *string) (*NotifyResult, error) {
	key, err := s.key(productID, rawVariant)
	if err != nil {
		return nil, err
	}

	pass, err := s.runPass(context.WithoutCancel(ctx), key)
	if err != nil {
		return nil, err
	}
	return &NotifyResult{
		ProductID:     key.ProductID,
		Variant:       variant.Ptr(key.Variant),
		Matched:       pass.Matched,
		Emailed:       pass.Emailed,
		SendErrors:    pass.SendErrors,
		Deleted:       pass.deleted,
		CleanupFailed: pass.cleanupErr != nil,
	}, nil
}

// CreateMissing creates zero-quantity records for every catalog line that
// has none. Per-line failures are reported, not fatal.
func (s *RestockService) CreateMissing(ctx context.Context) (*BackfillResult, error) {
	if s.catalog == nil {
		return nil, fmt.Errorf("create missing: catalog not configured")
	}
	products, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("create missing: list catalog: %w", err)
	}

	keys := catalog.Keys(products)
	created, errs := s.store.BulkCreateMissing(ctx, keys)
	metrics.BackfillCreated.Add(float64(created))

	res := &BackfillResult{Declared: len(keys), Created: created}
	for _, e := range errs {
		res.Errors = append(res.Errors, e.Error())
	}

	s.logger.Info("create missing finished",
		zap.Int("declared", len(keys)),
		zap.Int("created", created),
		zap.Int("errors", len(errs)))
	return res, nil
}

// Reconcile joins every catalog line with its quantity and subscriber count.
func (s *RestockService) Reconcile(ctx context.Context) ([]model.ReconcileRow, error) {
	if s.catalog == nil {
		return nil, fmt.Errorf("reconcile: catalog not configured")
	}
	products, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: list catalog: %w", err)
	}
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: list inventory: %w", err)
	}
	counts, err := s.registry.CountByKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: count subscriptions: %w", err)
	}

	qty := make(map[model.InventoryKey]int, len(records))
	for _, r := range records {
		qty[r.Key()] = r.Qty
	}

	rows := make([]model.ReconcileRow, 0)
	for i := range products {
		p := &products[i]
		for _, key := range catalog.Keys([]model.Product{*p}) {
			q, ok := qty[key]
			rows = append(rows, model.ReconcileRow{
				ProductID:        key.ProductID,
				ProductName:      p.Name,
				Variant:          key.Variant,
				VariantLabel:     catalog.VariantLabel(p, key.Variant),
				Qty:              q,
				Subscribers:      counts[key],
				MissingInventory: !ok,
			})
		}
	}
	return rows, nil
}

// Subscribe registers a back-in-stock request. Lines with stock are rejected
// with ErrInStock.
func (s *RestockService) Subscribe(ctx context.Context, productID string, rawVariant *string, email string) (*model.Subscription, error) {
	key, err := s.key(productID, rawVariant)
	if err != nil {
		return nil, err
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Name != "" {
		return nil, invalid("email", "must be a valid email address")
	}
	if err := s.requireListed(ctx, key.ProductID); err != nil {
		return nil, err
	}

	qty, err := s.store.Get(ctx, key.ProductID, key.Variant)
	if err != nil {
		return nil, fmt.Errorf("subscribe: read qty: %w", err)
	}
	if inventory.StateOf(qty) == inventory.InStock {
		return nil, ErrInStock
	}

	sub, err := s.registry.Add(ctx, key.ProductID, key.Variant, strings.ToLower(addr.Address))
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return &sub, nil
}

// Stock returns the current quantity of a line.
func (s *RestockService) Stock(ctx context.Context, productID string, rawVariant *string) (*StockResult, error) {
	key, err := s.key(productID, rawVariant)
	if err != nil {
		return nil, err
	}
	if err := s.requireListed(ctx, key.ProductID); err != nil {
		return nil, err
	}
	qty, err := s.store.Get(ctx, key.ProductID, key.Variant)
	if err != nil {
		return nil, fmt.Errorf("stock: %w", err)
	}
	return &StockResult{
		ProductID: key.ProductID,
		Variant:   variant.Ptr(key.Variant),
		Qty:       qty,
		InStock:   inventory.StateOf(qty) == inventory.InStock,
	}, nil
}

// Stats returns store statistics.
func (s *RestockService) Stats(ctx context.Context) (map[string]interface{}, error) {
	return s.store.Stats(ctx)
}

func (s *RestockService) key(productID string, rawVariant *string) (model.InventoryKey, error) {
	pid := variant.ProductID(productID)
	if pid == "" {
		return model.InventoryKey{}, invalid("productId", "is required")
	}
	return model.InventoryKey{ProductID: pid, Variant: variant.FromPtr(rawVariant)}, nil
}

func (s *RestockService) afterWrite(ctx context.Context, source string, key model.InventoryKey, change model.QtyChange) *WriteResult {
	res := &WriteResult{
		ProductID: key.ProductID,
		Variant:   variant.Ptr(key.Variant),
		PrevQty:   change.Prev,
		NextQty:   change.Next,
	}
	if !inventory.ShouldNotify(change.Prev, change.Next) {
		return res
	}

	metrics.Transitions.Inc()
	res.Notified = true

	// The write has committed; a client disconnect must not stop the pass.
	pass, err := s.runPass(context.WithoutCancel(ctx), key)
	if err != nil {
		s.logger.Error("notification pass failed after commit",
			zap.String("source", source),
			zap.String("product_id", key.ProductID),
			zap.String("variant", key.Variant),
			zap.Error(err))
		return res
	}

	res.Matched = pass.Matched
	res.Emailed = pass.Emailed
	res.SendErrors = pass.SendErrors
	res.Deleted = pass.deleted
	res.CleanupFailed = pass.cleanupErr != nil
	return res
}

type passResult struct {
	model.DispatchResult
	deleted    int
	cleanupErr error
}

func (s *RestockService) runPass(ctx context.Context, key model.InventoryKey) (passResult, error) {
	subs, err := s.registry.FindMatches(ctx, key.ProductID, key.Variant)
	if err != nil {
		return passResult{}, fmt.Errorf("find matches: %w", err)
	}
	if len(subs) == 0 {
		return passResult{}, nil
	}

	msg, err := notify.BuildMessage(s.lookup(ctx, key.ProductID), key, s.opts.SiteURL, s.opts.StoreName)
	if err != nil {
		return passResult{}, err
	}

	result := s.dispatcher.SendAll(ctx, subs, msg)
	deleted, cleanupErr := s.cleanup.DeleteSucceeded(ctx, key, result)

	fields := []zap.Field{
		zap.String("product_id", key.ProductID),
		zap.String("variant", key.Variant),
		zap.Int("matched", result.Matched),
		zap.Int("emailed", result.Emailed),
		zap.Int("send_errors", result.SendErrors),
		zap.Int("deleted", deleted),
	}
	if cleanupErr != nil {
		s.logger.Warn("notification pass finished, notified subscriptions remain registered",
			append(fields, zap.Error(cleanupErr))...)
	} else {
		s.logger.Info("notification pass finished", fields...)
	}

	return passResult{DispatchResult: result, deleted: deleted, cleanupErr: cleanupErr}, nil
}

func (s *RestockService) lookup(ctx context.Context, productID string) *model.Product {
	if s.catalog == nil {
		return nil
	}
	p, err := s.catalog.Lookup(ctx, productID)
	if err != nil {
		s.logger.Warn("catalog lookup failed, using raw identifiers",
			zap.String("product_id", productID), zap.Error(err))
		return nil
	}
	return p
}

// requireListed rejects products the catalog does not list. Without a catalog,
// or when the catalog cannot be reached, every product is accepted.
func (s *RestockService) requireListed(ctx context.Context, productID string) error {
	if s.catalog == nil {
		return nil
	}
	p, err := s.catalog.Lookup(ctx, productID)
	if err != nil {
		s.logger.Warn("catalog lookup failed, accepting product",
			zap.String("product_id", productID), zap.Error(err))
		return nil
	}
	if p == nil {
		return ErrUnknownProduct
	}
	return nil
}
