package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BackfillConfig holds configuration for the backfill scheduler.
type BackfillConfig struct {
	// Interval is how often createMissing runs. Zero disables the scheduler.
	Interval time.Duration

	// InitialDelay is the wait before the first run after Start.
	InitialDelay time.Duration

	// Timeout bounds a single run.
	Timeout time.Duration
}

// BackfillScheduler periodically creates zero-quantity records for catalog
// lines that have none.
type BackfillScheduler struct {
	svc       *RestockService
	config    BackfillConfig
	logger    *zap.Logger
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewBackfillScheduler creates a new backfill scheduler.
func NewBackfillScheduler(svc *RestockService, config BackfillConfig, logger *zap.Logger) *BackfillScheduler {
	if config.InitialDelay == 0 {
		config.InitialDelay = 30 * time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BackfillScheduler{
		svc:    svc,
		config: config,
		logger: logger.Named("backfill"),
		stopCh: make(chan struct{}),
	}
}

// Start begins the scheduler. It is a no-op when Interval is zero.
func (s *BackfillScheduler) Start() {
	if s.config.Interval <= 0 {
		s.logger.Info("backfill scheduler disabled")
		return
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()

	s.logger.Info("backfill scheduler started", zap.Duration("interval", s.config.Interval))

	go func() {
		select {
		case <-time.After(s.config.InitialDelay):
			s.runBackfill()
		case <-s.stopCh:
		}
	}()

	go s.run()
}

func (s *BackfillScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.runBackfill()
		case <-s.stopCh:
			s.logger.Info("backfill scheduler stopped")
			return
		}
	}
}

func (s *BackfillScheduler) runBackfill() {
	if _, err := s.RunNow(); err != nil {
		s.logger.Error("backfill run failed", zap.Error(err))
	}
}

// Stop stops the scheduler.
func (s *BackfillScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}

// RunNow triggers an immediate backfill run.
func (s *BackfillScheduler) RunNow() (*BackfillResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	return s.svc.CreateMissing(ctx)
}
