// Package metrics defines the Prometheus instrumentation of the query
// pipeline.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlq",
			Name:      "requests_total",
			Help:      "Total questions processed, by resolved intent and status",
		},
		[]string{"intent", "status"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nlq",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	RepairOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlq",
			Name:      "repair_outcomes_total",
			Help:      "JSON repair outcomes by the stage that produced valid JSON",
		},
		[]string{"stage"}, // "valid", "normalize", "commas", "brackets", "aggressive", "failed"
	)

	ParseFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nlq",
			Name:      "parse_failures_total",
			Help:      "Generator responses that stayed unparseable after repair",
		},
	)

	ClarificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlq",
			Name:      "clarifications_total",
			Help:      "Clarification responses by gate reason",
		},
		[]string{"reason"}, // "no_candidates", "weak_match", "no_measure", "ambiguous"
	)

	ValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlq",
			Name:      "validation_failures_total",
			Help:      "Structured queries rejected by the validator",
		},
		[]string{"reason"},
	)

	SchemaReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlq",
			Name:      "schema_reloads_total",
			Help:      "Schema index reloads",
		},
		[]string{"status"}, // "ok" / "error"
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(RepairOutcomesTotal)
	prometheus.MustRegister(ParseFailuresTotal)
	prometheus.MustRegister(ClarificationsTotal)
	prometheus.MustRegister(ValidationFailuresTotal)
	prometheus.MustRegister(SchemaReloadsTotal)
	pipelineMetricsRegistered = true
}
