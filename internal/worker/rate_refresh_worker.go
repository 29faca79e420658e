package worker

import (
	"context"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/observability"
	"go.uber.org/zap"
)

// Reloader re-reads a rate table from its source.
type Reloader interface {
	Reload() error
}

// Invalidator drops cached rates.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// RateRefreshWorker reloads the rate table and clears the shared cache so
// new deposits are approved against the current figures.
type RateRefreshWorker struct {
	*loop
	source Reloader
	cache  Invalidator
}

func NewRateRefreshWorker(source Reloader, cache Invalidator) *RateRefreshWorker {
	return &RateRefreshWorker{
		loop:   newLoop("rate refresh", time.Hour),
		source: source,
		cache:  cache,
	}
}

func (w *RateRefreshWorker) WithInterval(interval time.Duration) *RateRefreshWorker {
	w.setInterval(interval)
	return w
}

func (w *RateRefreshWorker) Start(ctx context.Context) {
	w.start(ctx, false, func(ctx context.Context) { _ = w.RunOnce(ctx) })
}

func (w *RateRefreshWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

// RunOnce reloads then invalidates. A failed reload keeps the previous
// table and leaves the cache alone.
func (w *RateRefreshWorker) RunOnce(ctx context.Context) error {
	if err := w.source.Reload(); err != nil {
		observability.IncrementWorkerRun("rate_refresh", "failed")
		zap.L().Warn("rate table reload failed", zap.Error(err))
		return err
	}
	if w.cache != nil {
		if err := w.cache.Invalidate(ctx); err != nil {
			observability.IncrementWorkerRun("rate_refresh", "failed")
			zap.L().Warn("rate cache invalidation failed", zap.Error(err))
			return err
		}
	}
	observability.IncrementWorkerRun("rate_refresh", "success")
	return nil
}
