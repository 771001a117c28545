package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the sale ledger module.
type Metrics struct {
	Purchases            prometheus.Counter
	Claims               prometheus.Counter
	ClaimRestoreFailures prometheus.Counter
	Refunds              prometheus.Counter
	StageChanges         prometheus.Counter
	VerifiedBatchSize    prometheus.Histogram
	PurchaseDuration     prometheus.Histogram
	QuoteDuration        prometheus.Histogram
}

// New creates a Metrics instance with all sale ledger metrics registered.
func New() *Metrics {
	return &Metrics{
		Purchases: promauto.NewCounter(prometheus.CounterOpts{
			Name: "salegate_purchases_total",
			Help: "Total number of recorded purchases",
		}),
		Claims: promauto.NewCounter(prometheus.CounterOpts{
			Name: "salegate_claims_total",
			Help: "Total number of successful claims",
		}),
		ClaimRestoreFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "salegate_claim_restore_failures_total",
			Help: "Pending allocations lost because the restore after a failed delivery also failed; requires manual reconciliation",
		}),
		Refunds: promauto.NewCounter(prometheus.CounterOpts{
			Name: "salegate_leftover_refunds_total",
			Help: "Total number of leftover refunds executed",
		}),
		StageChanges: promauto.NewCounter(prometheus.CounterOpts{
			Name: "salegate_stage_changes_total",
			Help: "Total number of pricing stage changes",
		}),
		VerifiedBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "salegate_verification_batch_size",
			Help:    "Size of bulk verification updates",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}),
		PurchaseDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "salegate_purchase_duration_seconds",
			Help:    "Duration of purchase operations (sale critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		QuoteDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "salegate_quote_duration_seconds",
			Help:    "Duration of quote computations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObservePurchase records the duration of a purchase operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObservePurchase(start time.Time) {
	m.PurchaseDuration.Observe(time.Since(start).Seconds())
}

// ObserveQuote records the duration of a quote computation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveQuote(start time.Time) {
	m.QuoteDuration.Observe(time.Since(start).Seconds())
}
