package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultHousekeepingInterval = 5 * time.Minute

// Sweeper drops rate-limit buckets whose window has elapsed.
type Sweeper interface {
	Sweep(now time.Time) int
}

// HousekeepingService sweeps elapsed rate-limit buckets on an interval so the
// in-memory table does not keep an entry for every client ever seen. Only
// the memory bucket store needs it; Valkey expires keys on its own.
type HousekeepingService struct {
	Buckets  Sweeper
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	// OnSweep, when set, receives the number of buckets each sweep removed.
	OnSweep func(removed int)

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewHousekeepingService returns a stopped service. A non-positive interval
// means five minutes.
func NewHousekeepingService(buckets Sweeper, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = defaultHousekeepingInterval
	}
	return &HousekeepingService{
		Buckets:  buckets,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
	}
}

// Start launches the sweep loop. Later calls are no-ops.
func (s *HousekeepingService) Start() {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.done = make(chan struct{})

		go s.run(ctx)
		s.Logger.Info("housekeeping started", "interval", s.Interval)
	})
}

// Stop ends the loop and waits for an in-progress sweep. It returns at once
// when Start was never called.
func (s *HousekeepingService) Stop() {
	s.startOnce.Do(func() {})

	s.stopOnce.Do(func() {
		if s.cancel == nil {
			return
		}
		s.cancel()
		<-s.done
		s.Logger.Info("housekeeping stopped")
	})
}

func (s *HousekeepingService) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-ctx.Done():
			return
		}
	}
}

func (s *HousekeepingService) cleanup() int {
	removed := s.Buckets.Sweep(s.Now())
	if s.OnSweep != nil {
		s.OnSweep(removed)
	}
	if removed > 0 {
		s.Logger.Debug("rate-limit buckets swept", "removed", removed)
	}
	return removed
}
