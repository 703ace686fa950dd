package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerLookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "lookup_duration_seconds",
			Help:      "Duration of batched last-sale-price lookups.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"outcome"},
	)

	ledgerRowsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "rows_skipped_total",
			Help:      "Sale rows skipped during a lookup, by reason.",
		},
		[]string{"reason"},
	)

	ledgerBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "breaker_state",
			Help:      "Ledger circuit breaker state (0 closed, 1 open, 2 half-open).",
		},
	)

	enrichmentFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_failures_total",
			Help:      "Pages served without last sale prices because the ledger lookup failed.",
		},
	)
)

// ObserveLedgerLookup records one lookup. outcome is "ok", "error" or "open".
func ObserveLedgerLookup(outcome string, d time.Duration) {
	ledgerLookupDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// LedgerRowSkipped counts a sale row that could not yield a price.
func LedgerRowSkipped(reason string) {
	ledgerRowsSkipped.WithLabelValues(reason).Inc()
}

// SetLedgerBreakerState publishes the breaker state as a number.
func SetLedgerBreakerState(state int) {
	ledgerBreakerState.Set(float64(state))
}

// EnrichmentFailed counts a page served without enrichment.
func EnrichmentFailed() {
	enrichmentFailures.Inc()
}
