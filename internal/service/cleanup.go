package service

import (
	"context"
	"sync"
	"time"

	"phonemarket-bot/internal/repository"

	"github.com/rs/zerolog/log"
)

// OfferPruner deletes offer batches generated before a cutoff.
type OfferPruner interface {
	DeleteOffersBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

var _ OfferPruner = (repository.Repository)(nil)

// CleanupConfig holds configuration for the cleanup scheduler.
type CleanupConfig struct {
	// Retention is how long an offer batch is kept after it was generated.
	// Default: 7 days
	Retention time.Duration

	// Interval is how often the cleanup runs.
	// Default: 1 hour
	Interval time.Duration

	// InitialDelay postpones the first run after Start.
	InitialDelay time.Duration

	// CycleStart returns the start of the game cycle containing now. The
	// cutoff never moves past it, so the current batch is always kept.
	CycleStart func(now time.Time) time.Time
}

// CleanupScheduler periodically prunes offer batches from past cycles.
type CleanupScheduler struct {
	repo   OfferPruner
	config CleanupConfig
	now    func() time.Time

	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
	wg        sync.WaitGroup
}

// NewCleanupScheduler creates a new cleanup scheduler.
func NewCleanupScheduler(repo OfferPruner, config CleanupConfig) *CleanupScheduler {
	if config.Retention <= 0 {
		config.Retention = 7 * 24 * time.Hour
	}
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = time.Minute
	}

	return &CleanupScheduler{
		repo:   repo,
		config: config,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

// Start begins the cleanup scheduler.
func (s *CleanupScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()

	log.Info().
		Str("component", "cleanup").
		Dur("interval", s.config.Interval).
		Dur("retention", s.config.Retention).
		Msg("Cleanup scheduler started")

	s.wg.Add(1)
	go s.run()
}

// run is the main cleanup loop.
func (s *CleanupScheduler) run() {
	defer s.wg.Done()

	initial := time.NewTimer(s.config.InitialDelay)
	defer initial.Stop()

	for {
		select {
		case <-initial.C:
			s.runCleanup()
		case <-s.ticker.C:
			s.runCleanup()
		case <-s.stopCh:
			log.Info().Str("component", "cleanup").Msg("Cleanup scheduler stopped")
			return
		}
	}
}

func (s *CleanupScheduler) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	deleted, err := s.RunNow(ctx)
	if err != nil {
		log.Error().Err(err).Str("component", "cleanup").Msg("Offer cleanup failed")
		return
	}
	if deleted > 0 {
		log.Info().Str("component", "cleanup").Int64("deleted", deleted).Msg("Pruned stale offers")
	} else {
		log.Debug().Str("component", "cleanup").Msg("No stale offers to prune")
	}
}

// Stop stops the cleanup scheduler and waits for an in-flight run.
func (s *CleanupScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
		s.mu.Unlock()
	})
	s.wg.Wait()
}

// RunNow triggers an immediate cleanup run.
func (s *CleanupScheduler) RunNow(ctx context.Context) (int64, error) {
	now := s.now()
	cutoff := now.Add(-s.config.Retention)
	if s.config.CycleStart != nil {
		if start := s.config.CycleStart(now); start.Before(cutoff) {
			cutoff = start
		}
	}
	return s.repo.DeleteOffersBefore(ctx, cutoff)
}
