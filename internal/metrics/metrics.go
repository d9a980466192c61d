// Package metrics exposes the engine host's prometheus collectors:
// orders submitted/rejected/filled counts and dispatch latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors groups every metric the engine host publishes.
type Collectors struct {
	OrdersSubmitted *prometheus.CounterVec
	OrdersRejected  *prometheus.CounterVec
	OrdersFilled    *prometheus.CounterVec
	DispatchLatency prometheus.Histogram
	BarsProcessed   *prometheus.CounterVec
}

// New registers the engine's collectors against reg and returns them.
// Pass prometheus.NewRegistry() in tests to avoid collisions with the
// global default registry.
func New(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)

	return &Collectors{
		OrdersSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "strategy_engine",
			Name:      "orders_submitted_total",
			Help:      "Orders submitted to the execution client, by purpose.",
		}, []string{"purpose"}),
		OrdersRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "strategy_engine",
			Name:      "orders_rejected_total",
			Help:      "OrderRejected events reduced by the ledger, by purpose.",
		}, []string{"purpose"}),
		OrdersFilled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "strategy_engine",
			Name:      "orders_filled_total",
			Help:      "OrderFilled events reduced by the ledger, by purpose.",
		}, []string{"purpose"}),
		DispatchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "strategy_engine",
			Name:      "dispatch_latency_seconds",
			Help:      "Wall-clock time spent inside a single handle_bar call.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		BarsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "strategy_engine",
			Name:      "bars_processed_total",
			Help:      "Bars delivered to handle_bar, by bar type.",
		}, []string{"bar_type"}),
	}
}
