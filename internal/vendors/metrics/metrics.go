package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for vendor calls.
type Metrics struct {
	// Per-attempt latency by vendor
	CallLatency *prometheus.HistogramVec

	// Attempt outcomes by vendor and failure category ("ok" for successes)
	CallOutcome *prometheus.CounterVec

	// Breaker transitions by vendor and new state
	BreakerTransitions *prometheus.CounterVec

	// 1 while a vendor's breaker is open
	BreakerOpen *prometheus.GaugeVec
}

// New registers the vendor metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the vendor metrics with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "veriflow_vendor_call_duration_seconds",
			Help:    "Duration of vendor calls by vendor",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"vendor"}),

		CallOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "veriflow_vendor_calls_total",
			Help: "Total vendor calls by vendor and outcome",
		}, []string{"vendor", "outcome"}),

		BreakerTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "veriflow_vendor_breaker_transitions_total",
			Help: "Circuit breaker state changes by vendor",
		}, []string{"vendor", "state"}),

		BreakerOpen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "veriflow_vendor_breaker_open",
			Help: "Whether the vendor circuit breaker is open (1) or closed (0)",
		}, []string{"vendor"}),
	}
}

// ObserveCall records one vendor attempt.
func (m *Metrics) ObserveCall(vendor, outcome string, d time.Duration) {
	if m != nil {
		m.CallLatency.WithLabelValues(vendor).Observe(d.Seconds())
		m.CallOutcome.WithLabelValues(vendor, outcome).Inc()
	}
}

// RecordBreakerOpened records a closed to open transition.
func (m *Metrics) RecordBreakerOpened(vendor string) {
	if m != nil {
		m.BreakerTransitions.WithLabelValues(vendor, "open").Inc()
		m.BreakerOpen.WithLabelValues(vendor).Set(1)
	}
}

// RecordBreakerClosed records an open to closed transition.
func (m *Metrics) RecordBreakerClosed(vendor string) {
	if m != nil {
		m.BreakerTransitions.WithLabelValues(vendor, "closed").Inc()
		m.BreakerOpen.WithLabelValues(vendor).Set(0)
	}
}
