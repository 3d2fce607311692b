package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics holds the counters and histograms recorded by the stages.
// A nil *PipelineMetrics is valid and records nothing.
type PipelineMetrics struct {
	rowsProcessed       metric.Int64Counter
	rowsDropped         metric.Int64Counter
	volatilityMethods   metric.Int64Counter
	solverStatuses      metric.Int64Counter
	integrityViolations metric.Int64Counter
	winsorizedRows      metric.Int64Counter
	stageDuration       metric.Float64Histogram
}

// NewPipelineMetrics creates the pipeline instruments on meter
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	rowsProcessed, err := meter.Int64Counter(
		"pipeline_rows_processed",
		metric.WithDescription("Rows emitted by each pipeline stage"),
	)
	if err != nil {
		return nil, err
	}

	rowsDropped, err := meter.Int64Counter(
		"pipeline_rows_dropped",
		metric.WithDescription("Rows dropped by each pipeline stage, by reason"),
	)
	if err != nil {
		return nil, err
	}

	volatilityMethods, err := meter.Int64Counter(
		"volatility_estimates",
		metric.WithDescription("Volatility estimates by selected method"),
	)
	if err != nil {
		return nil, err
	}

	solverStatuses, err := meter.Int64Counter(
		"merton_solves",
		metric.WithDescription("Merton solver outcomes by status"),
	)
	if err != nil {
		return nil, err
	}

	integrityViolations, err := meter.Int64Counter(
		"time_integrity_violations",
		metric.WithDescription("Lookahead violations found by category"),
	)
	if err != nil {
		return nil, err
	}

	winsorizedRows, err := meter.Int64Counter(
		"winsorized_rows",
		metric.WithDescription("Rows clipped or trimmed by metric"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"pipeline_stage_duration_seconds",
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		rowsProcessed:       rowsProcessed,
		rowsDropped:         rowsDropped,
		volatilityMethods:   volatilityMethods,
		solverStatuses:      solverStatuses,
		integrityViolations: integrityViolations,
		winsorizedRows:      winsorizedRows,
		stageDuration:       stageDuration,
	}, nil
}

// RecordStage records a stage duration and outcome
func (m *PipelineMetrics) RecordStage(ctx context.Context, stage string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.stageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	))
}

// RecordRows counts rows emitted by a stage
func (m *PipelineMetrics) RecordRows(ctx context.Context, stage string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.rowsProcessed.Add(ctx, int64(n), metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordDropped counts rows dropped by a stage for one reason
func (m *PipelineMetrics) RecordDropped(ctx context.Context, stage, reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.rowsDropped.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("reason", reason),
	))
}

// RecordMethod counts one volatility estimate by method name
func (m *PipelineMetrics) RecordMethod(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.volatilityMethods.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// RecordSolverStatus counts one solver outcome
func (m *PipelineMetrics) RecordSolverStatus(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.solverStatuses.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordViolations counts lookahead violations of one category
func (m *PipelineMetrics) RecordViolations(ctx context.Context, category string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.integrityViolations.Add(ctx, int64(n), metric.WithAttributes(attribute.String("category", category)))
}

// RecordWinsorized counts rows clipped or trimmed for one metric
func (m *PipelineMetrics) RecordWinsorized(ctx context.Context, metricName, mode string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.winsorizedRows.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("metric", metricName),
		attribute.String("mode", mode),
	))
}
