package worker

import (
	"context"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/observability"
	"go.uber.org/zap"
)

// Sweeper deletes idempotency records past their retention window.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int64, error)
}

type IdempotencySweeper struct {
	*loop
	store Sweeper
	now   func() time.Time
}

func NewIdempotencySweeper(store Sweeper) *IdempotencySweeper {
	return &IdempotencySweeper{
		loop:  newLoop("idempotency sweeper", time.Hour),
		store: store,
		now:   time.Now,
	}
}

func (w *IdempotencySweeper) WithInterval(interval time.Duration) *IdempotencySweeper {
	w.setInterval(interval)
	return w
}

func (w *IdempotencySweeper) Start(ctx context.Context) {
	w.start(ctx, false, func(ctx context.Context) { _, _ = w.RunOnce(ctx) })
}

func (w *IdempotencySweeper) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *IdempotencySweeper) RunOnce(ctx context.Context) (int64, error) {
	deleted, err := w.store.Sweep(ctx, w.now())
	if err != nil {
		observability.IncrementWorkerRun("idempotency_sweep", "failed")
		zap.L().Warn("idempotency sweep failed", zap.Error(err))
		return 0, err
	}
	observability.IncrementWorkerRun("idempotency_sweep", "success")
	if deleted > 0 {
		zap.L().Info("idempotency records swept", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}
