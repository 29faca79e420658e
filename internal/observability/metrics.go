package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	httpDurationHistogram  *prometheus.HistogramVec
	ledgerPostingCounter   *prometheus.CounterVec
	ledgerImbalanceCounter *prometheus.CounterVec
	idempotencyCounter     *prometheus.CounterVec
	workflowCounter        *prometheus.CounterVec
	rateLookupCounter      *prometheus.CounterVec
	pendingWithdrawalGauge prometheus.Gauge
	eventPublishCounter    *prometheus.CounterVec
	workerRunCounter       *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		ledgerPostingCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_postings_total",
			Help: "Ledger debit and credit attempts by entry kind",
		}, []string{"kind", "result"})

		ledgerImbalanceCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_imbalance_total",
			Help: "Accounts whose stored balance or sequence disagreed with their entries",
		}, []string{"check"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		workflowCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_transitions_total",
			Help: "Deposit and withdrawal review transitions",
		}, []string{"workflow", "action"})

		rateLookupCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_lookups_total",
			Help: "Exchange rate lookups by outcome",
		}, []string{"outcome"})

		pendingWithdrawalGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "withdrawal_pending_queue",
			Help: "Current number of withdrawals waiting for review",
		})

		eventPublishCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_events_published_total",
			Help: "Ledger event publish attempts",
		}, []string{"result"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			ledgerPostingCounter,
			ledgerImbalanceCounter,
			idempotencyCounter,
			workflowCounter,
			rateLookupCounter,
			pendingWithdrawalGauge,
			eventPublishCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementLedgerPosting(kind, result string) {
	if ledgerPostingCounter == nil {
		return
	}
	ledgerPostingCounter.WithLabelValues(kind, result).Inc()
}

// IncrementLedgerImbalance counts a failed reconciliation check ("balance" or "sequence").
func IncrementLedgerImbalance(check string) {
	if ledgerImbalanceCounter == nil {
		return
	}
	ledgerImbalanceCounter.WithLabelValues(check).Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementWorkflowTransition(workflow, action string) {
	if workflowCounter == nil {
		return
	}
	workflowCounter.WithLabelValues(workflow, action).Inc()
}

func IncrementRateLookup(outcome string) {
	if rateLookupCounter == nil {
		return
	}
	rateLookupCounter.WithLabelValues(outcome).Inc()
}

func SetPendingWithdrawals(size int64) {
	if pendingWithdrawalGauge == nil {
		return
	}
	pendingWithdrawalGauge.Set(float64(size))
}

func IncrementEventPublish(result string) {
	if eventPublishCounter == nil {
		return
	}
	eventPublishCounter.WithLabelValues(result).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
