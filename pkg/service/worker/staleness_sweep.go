package worker

import (
	"context"
	"sync"
	"time"

	"github.com/secmon-lab/musubi/pkg/utils/logging"
)

const (
	// DefaultSweepInterval is how often cached insights are checked for staleness
	DefaultSweepInterval = 30 * time.Second
)

// Sweeper moves expired cache entries to stale and returns how many changed
type Sweeper interface {
	Sweep(ctx context.Context) int
}

// StalenessSweepWorker periodically sweeps the insights cache so that records past
// their freshness window turn STALE even when nobody reads them, and records with
// live subscribers are revalidated in the background.
//
// Architecture assumptions:
// - Single server instance; the cache it sweeps is process local
type StalenessSweepWorker struct {
	sweeper  Sweeper
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewStalenessSweepWorker creates a worker sweeping sweeper every interval
func NewStalenessSweepWorker(sweeper Sweeper, interval time.Duration) *StalenessSweepWorker {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &StalenessSweepWorker{
		sweeper:  sweeper,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the sweep loop in a background goroutine
func (w *StalenessSweepWorker) Start(ctx context.Context) error {
	logging.From(ctx).Info("Staleness sweep worker starting",
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion. It is safe to call more
// than once.
func (w *StalenessSweepWorker) Stop() {
	w.stopOnce.Do(func() {
		logging.Default().Info("Staleness sweep worker stopping")
		close(w.stopCh)
	})
	<-w.doneCh
}

func (w *StalenessSweepWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := w.sweeper.Sweep(ctx); n > 0 {
				logging.From(ctx).Debug("Insights records marked stale", "count", n)
			}

		case <-w.stopCh:
			logging.Default().Info("Staleness sweep worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("Staleness sweep worker context cancelled")
			return
		}
	}
}
