package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for verification decisions.
type Metrics struct {
	// Decision outcomes by status and workflow mode
	DecisionOutcome *prometheus.CounterVec

	// Aggregate score distribution of decided requests
	AggregateScore prometheus.Histogram

	// Matched rules by rule id
	RuleMatches *prometheus.CounterVec

	// Full Process latency including dispatch
	ProcessLatency *prometheus.HistogramVec

	// Process calls rejected before dispatch by error code
	Rejections *prometheus.CounterVec
}

// New registers the decision metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the decision metrics with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DecisionOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "veriflow_decision_outcomes_total",
			Help: "Total decision outcomes by status and workflow mode",
		}, []string{"status", "workflow"}),

		AggregateScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "veriflow_decision_aggregate_score",
			Help:    "Aggregate vendor score of decided requests",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),

		RuleMatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "veriflow_decision_rule_matches_total",
			Help: "Rules that decided a request, by rule id",
		}, []string{"rule"}),

		ProcessLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "veriflow_decision_process_duration_seconds",
			Help:    "Duration of request processing including vendor dispatch",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"workflow"}),

		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "veriflow_decision_rejections_total",
			Help: "Process calls rejected before dispatch, by error code",
		}, []string{"code"}),
	}
}

// IncrementOutcome records a decision outcome.
func (m *Metrics) IncrementOutcome(status, workflow string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(status, workflow).Inc()
	}
}

// ObserveScore records an aggregate score. Nil scores are skipped.
func (m *Metrics) ObserveScore(score *float64) {
	if m != nil && score != nil {
		m.AggregateScore.Observe(*score)
	}
}

// IncrementRuleMatch records the rule that decided a request.
func (m *Metrics) IncrementRuleMatch(rule string) {
	if m != nil {
		m.RuleMatches.WithLabelValues(rule).Inc()
	}
}

// ObserveProcessLatency records the total processing duration.
func (m *Metrics) ObserveProcessLatency(workflow string, d time.Duration) {
	if m != nil {
		m.ProcessLatency.WithLabelValues(workflow).Observe(d.Seconds())
	}
}

// IncrementRejection records a Process call refused before dispatch.
func (m *Metrics) IncrementRejection(code string) {
	if m != nil {
		m.Rejections.WithLabelValues(code).Inc()
	}
}
