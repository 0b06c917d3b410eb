package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"storefront-restock-api/internal/metrics"
	"storefront-restock-api/internal/model"
	"storefront-restock-api/internal/repository"
)

// CleanupCoordinator removes the subscriptions served by a notification pass.
// The delete is the durable "already notified" marker.
type CleanupCoordinator struct {
	registry repository.SubscriptionRegistry
	logger   *zap.Logger
}

// NewCleanupCoordinator creates a cleanup coordinator.
func NewCleanupCoordinator(registry repository.SubscriptionRegistry, logger *zap.Logger) *CleanupCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CleanupCoordinator{
		registry: registry,
		logger:   logger.Named("cleanup"),
	}
}

// DeleteSucceeded deletes exactly result.SucceededIDs, restricted to key.
// A failed delete is logged and returned; it is never turned into a resend.
func (c *CleanupCoordinator) DeleteSucceeded(ctx context.Context, key model.InventoryKey, result model.DispatchResult) (int, error) {
	if len(result.SucceededIDs) == 0 {
		return 0, nil
	}

	deleted, err := c.registry.DeleteByIDs(ctx, key.ProductID, key.Variant, result.SucceededIDs)
	if err != nil {
		c.logger.Error("failed to delete notified subscriptions",
			zap.String("product_id", key.ProductID),
			zap.String("variant", key.Variant),
			zap.Int("ids", len(result.SucceededIDs)),
			zap.Error(err))
		return 0, fmt.Errorf("delete notified subscriptions: %w", err)
	}

	metrics.SubscriptionsDeleted.Add(float64(deleted))
	if deleted != len(result.SucceededIDs) {
		c.logger.Warn("deleted fewer subscriptions than were notified",
			zap.String("product_id", key.ProductID),
			zap.String("variant", key.Variant),
			zap.Int("notified", len(result.SucceededIDs)),
			zap.Int("deleted", deleted))
	}
	return deleted, nil
}
