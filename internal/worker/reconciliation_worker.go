package worker

import (
	"context"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/observability"
	"github.com/ayo6706/wallet-ledger/internal/service"
	"go.uber.org/zap"
)

// ReconciliationWorker runs periodic ledger reconciliation checks.
type ReconciliationWorker struct {
	*loop
	svc *service.ReconciliationService
}

// NewReconciliationWorker constructs a worker with a default daily interval.
func NewReconciliationWorker(svc *service.ReconciliationService) *ReconciliationWorker {
	return &ReconciliationWorker{
		loop: newLoop("reconciliation", 24*time.Hour),
		svc:  svc,
	}
}

// WithInterval updates the run interval.
func (w *ReconciliationWorker) WithInterval(interval time.Duration) *ReconciliationWorker {
	w.setInterval(interval)
	return w
}

// Start blocks and runs reconciliation at the configured interval, once
// immediately at startup.
func (w *ReconciliationWorker) Start(ctx context.Context) {
	w.start(ctx, true, func(ctx context.Context) { _, _ = w.RunOnce(ctx) })
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *ReconciliationWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

// RunOnce performs a single pass and records its outcome.
func (w *ReconciliationWorker) RunOnce(ctx context.Context) (*service.ReconciliationReport, error) {
	report, err := w.svc.Run(ctx)
	if err != nil {
		observability.IncrementWorkerRun("reconciliation", "failed")
		zap.L().Error("reconciliation run failed", zap.Error(err))
		return nil, err
	}
	if !report.Balanced {
		observability.IncrementWorkerRun("reconciliation", "imbalanced")
		zap.L().Error("reconciliation found mismatches",
			zap.Int("accounts_checked", report.AccountsChecked),
			zap.Int("mismatches", len(report.Mismatches)),
		)
		return report, nil
	}
	observability.IncrementWorkerRun("reconciliation", "success")
	return report, nil
}
