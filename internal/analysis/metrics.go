package analysis

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Package-level tracer and meter for the pipeline.
var (
	tracer = otel.Tracer("hotdelta.analysis")
	meter  = otel.Meter("hotdelta.analysis")
)

var (
	analysisTotal    metric.Int64Counter
	analysisLatency  metric.Float64Histogram
	editsTotal       metric.Int64Counter
	rudeEditsTotal   metric.Int64Counter
	operationsTotal  metric.Int64Counter
	metricsOnce      sync.Once
	metricsInitError error
)

// initMetrics creates the instruments once. Without a configured provider
// the global meter is a no-op.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error
		if analysisTotal, err = meter.Int64Counter(
			"hotdelta_analysis_total",
			metric.WithDescription("Number of analysis runs"),
		); err != nil {
			metricsInitError = err
			return
		}
		if analysisLatency, err = meter.Float64Histogram(
			"hotdelta_analysis_duration_seconds",
			metric.WithDescription("Duration of analysis runs"),
			metric.WithUnit("s"),
		); err != nil {
			metricsInitError = err
			return
		}
		if editsTotal, err = meter.Int64Counter(
			"hotdelta_edits_total",
			metric.WithDescription("Number of edits in analyzed scripts"),
		); err != nil {
			metricsInitError = err
			return
		}
		if rudeEditsTotal, err = meter.Int64Counter(
			"hotdelta_rude_edits_total",
			metric.WithDescription("Number of edits classified as rude"),
		); err != nil {
			metricsInitError = err
			return
		}
		if operationsTotal, err = meter.Int64Counter(
			"hotdelta_operations_total",
			metric.WithDescription("Number of synthesized semantic operations"),
		); err != nil {
			metricsInitError = err
		}
	})
	return metricsInitError
}
