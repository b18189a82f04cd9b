package services

import (
	"context"
	"sync"
	"time"

	"quarterly-status/internal/core"
	"quarterly-status/internal/features/status/store"
)

// Scheduler refreshes the status on a fixed interval
type Scheduler struct {
	refresher *Refresher
	repo      *store.Repository
	interval  time.Duration
	logger    *core.Logger
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewScheduler creates a new scheduler
func NewScheduler(refresher *Refresher, repo *store.Repository, interval time.Duration, logger *core.Logger) *Scheduler {
	return &Scheduler{
		refresher: refresher,
		repo:      repo,
		interval:  interval,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the refresh loop. A non-positive interval disables it.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info("Scheduled refresh disabled")
		return nil
	}

	s.logger.Info("Starting refresh scheduler", "interval", s.interval)

	s.wg.Add(1)
	go s.refreshLoop(ctx)

	return nil
}

// Stop gracefully stops the scheduler, waiting for an in-flight refresh
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.Info("Stopping refresh scheduler")
	s.stopOnce.Do(func() { close(s.stopChan) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) refreshLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler context cancelled")
			return
		case <-s.stopChan:
			s.logger.Info("Scheduler stop signal received")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce refreshes and then drops expired store records
func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.refresher.Refresh(ctx); err != nil {
		s.logger.Error("Scheduled refresh failed", "error", err)
		return
	}
	if err := s.repo.PurgeExpired(ctx); err != nil {
		s.logger.Warn("Failed to purge expired records", "error", err)
	}
}
