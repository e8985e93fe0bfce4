package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector aggregates the ledger operation metrics. Operations are
// labeled by name (process_payment, cancel_payment, process_payback,
// cancel_payback) and outcome.
type Collector struct {
	registry          *prometheus.Registry
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	limitResets       *prometheus.CounterVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		operations: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Total ledger operations by name and outcome",
		}, []string{"operation", "outcome"}),
		operationDuration: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_seconds",
			Help:    "Time taken by ledger operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		limitResets: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_limit_resets_total",
			Help: "Bulk accumulator resets by period",
		}, []string{"period"}),
	}
}

// ObserveOperation records one engine operation.
func (c *Collector) ObserveOperation(operation string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.operations.WithLabelValues(operation, outcome).Inc()
	c.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveLimitReset records one bulk accumulator reset ("daily"/"monthly").
func (c *Collector) ObserveLimitReset(period string) {
	c.limitResets.WithLabelValues(period).Inc()
}

// Handler serves the collector's registry for scraping.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
