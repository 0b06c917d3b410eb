package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuantityWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restock_quantity_writes_total",
			Help: "Committed inventory quantity writes by entry point",
		},
		[]string{"source"},
	)

	QuantityWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restock_quantity_write_failures_total",
			Help: "Inventory writes that did not commit",
		},
		[]string{"source"},
	)

	Transitions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "restock_transitions_total",
			Help: "Out-of-stock to in-stock transitions detected",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restock_notifications_total",
			Help: "Back-in-stock notification attempts by outcome",
		},
		[]string{"outcome"},
	)

	SendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "restock_notification_send_seconds",
			Help:    "Duration of a single notification send",
			Buckets: prometheus.DefBuckets,
		},
	)

	SubscriptionsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "restock_subscriptions_deleted_total",
			Help: "Subscriptions removed after a successful notification",
		},
	)

	BackfillCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "restock_backfill_created_total",
			Help: "Zero-quantity inventory rows created by createMissing",
		},
	)
)
