package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"storefront-restock-api/internal/metrics"
	"storefront-restock-api/internal/model"
)

// Dispatcher sends one email per subscription with bounded concurrency.
// Sends are never retried within a pass.
type Dispatcher struct {
	mailer      Mailer
	concurrency int
	sendTimeout time.Duration
	logger      *zap.Logger
}

// NewDispatcher creates a dispatcher. concurrency below 1 is treated as 1.
func NewDispatcher(mailer Mailer, concurrency int, sendTimeout time.Duration, logger *zap.Logger) *Dispatcher {
	if mailer == nil {
		mailer = Unconfigured{}
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		mailer:      mailer,
		concurrency: concurrency,
		sendTimeout: sendTimeout,
		logger:      logger.Named("dispatcher"),
	}
}

// SendAll attempts every subscription and returns once all sends are
// terminal. SucceededIDs keeps the order of subs.
func (d *Dispatcher) SendAll(ctx context.Context, subs []model.Subscription, msg Message) model.DispatchResult {
	result := model.DispatchResult{Matched: len(subs)}
	if len(subs) == 0 {
		return result
	}

	if !d.mailer.Configured() {
		d.logger.Warn("mail not configured, counting all matches as send errors",
			zap.Int("matched", len(subs)))
		result.SendErrors = len(subs)
		metrics.NotificationsSent.WithLabelValues("unconfigured").Add(float64(len(subs)))
		return result
	}

	ok := make([]bool, len(subs))
	sem := make(chan struct{}, d.concurrency)
	var wg sync.WaitGroup

	for i := range subs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			ok[i] = d.send(ctx, subs[i], msg)
		}(i)
	}
	wg.Wait()

	for i, sent := range ok {
		if sent {
			result.Emailed++
			result.SucceededIDs = append(result.SucceededIDs, subs[i].ID)
		} else {
			result.SendErrors++
		}
	}
	return result
}

func (d *Dispatcher) send(ctx context.Context, sub model.Subscription, msg Message) bool {
	sendCtx := ctx
	if d.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, d.sendTimeout)
		defer cancel()
	}

	start := time.Now()
	err := d.mailer.Send(sendCtx, sub.Email, msg.Subject, msg.HTML)
	metrics.SendDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.NotificationsSent.WithLabelValues("error").Inc()
		d.logger.Warn("notification send failed",
			zap.String("subscription_id", sub.ID),
			zap.String("product_id", sub.ProductID),
			zap.String("variant", sub.Variant),
			zap.Error(err))
		return false
	}
	metrics.NotificationsSent.WithLabelValues("sent").Inc()
	return true
}
