package operations

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// StageTracer creates the spans of a run
type StageTracer struct {
	tracer trace.Tracer
}

// NewStageTracer wraps tracer; nil yields a no-op tracer
func NewStageTracer(tracer trace.Tracer) *StageTracer {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &StageTracer{tracer: tracer}
}

// TraceRun creates the root span of a run
func (st *StageTracer) TraceRun(ctx context.Context, runID, variant string) (context.Context, trace.Span) {
	return st.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.variant", variant),
		),
	)
}

// TraceStage creates a span for one Step
func (st *StageTracer) TraceStage(ctx context.Context, runID string, step Step) (context.Context, trace.Span) {
	return st.tracer.Start(ctx, fmt.Sprintf("pipeline.stage.%s", step.ID()),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("stage.id", step.ID()),
			attribute.String("stage.name", step.Name()),
		),
	)
}

// EndStage records the outcome of a Step on its span and ends it
func (st *StageTracer) EndStage(span trace.Span, rows int, err error) {
	span.SetAttributes(attribute.Int("stage.rows", rows))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
