package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the generated API. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// CRUD operation latency by entity, operation and outcome
	OperationLatency *prometheus.HistogramVec

	// Operations that failed and were degraded to null/false
	DegradedOperations *prometheus.CounterVec

	// Filter conditions and order clauses dropped during query building
	DroppedConditions *prometheus.CounterVec

	// Computed fields whose accessor failed
	ComputedFailures *prometheus.CounterVec
}

// New creates a Metrics instance registered on reg. A nil reg registers on
// the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		OperationLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "heritage_api_operation_duration_seconds",
			Help:    "Duration of generated CRUD operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"entity", "operation", "outcome"}), // outcome: "ok", "not_found", "error"

		DegradedOperations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "heritage_api_degraded_operations_total",
			Help: "Operations whose failure was degraded to a null or false result",
		}, []string{"entity", "operation"}),

		DroppedConditions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "heritage_api_dropped_conditions_total",
			Help: "Filter or ordering clauses dropped because they could not be resolved",
		}, []string{"entity", "kind"}), // kind: "filter", "order"

		ComputedFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "heritage_api_computed_field_failures_total",
			Help: "Computed field evaluations that failed and resolved to null",
		}, []string{"entity", "field"}),
	}
}

// ObserveOperation records the duration and outcome of a CRUD operation.
func (m *Metrics) ObserveOperation(entity, operation, outcome string, d time.Duration) {
	if m != nil {
		m.OperationLatency.WithLabelValues(entity, operation, outcome).Observe(d.Seconds())
	}
}

// IncrementDegraded records an operation failure degraded for the caller.
func (m *Metrics) IncrementDegraded(entity, operation string) {
	if m != nil {
		m.DegradedOperations.WithLabelValues(entity, operation).Inc()
	}
}

// IncrementDropped records a dropped filter or order clause.
func (m *Metrics) IncrementDropped(entity, kind string) {
	if m != nil {
		m.DroppedConditions.WithLabelValues(entity, kind).Inc()
	}
}

// IncrementComputedFailure records a failed computed field.
func (m *Metrics) IncrementComputedFailure(entity, field string) {
	if m != nil {
		m.ComputedFailures.WithLabelValues(entity, field).Inc()
	}
}
