package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Simon3728/Data-Analysis-Election/internal/infrastructure"
)

const (
	TracerName = "election-analysis.run"
)

// OperationTracer provides OpenTelemetry instrumentation for analysis runs
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.AnalysisMetrics
}

// NewOperationTracer creates a tracer over providers. Nil providers fall
// back to the global tracer and no metrics.
func NewOperationTracer(providers *infrastructure.OTelProviders, metrics *infrastructure.AnalysisMetrics) *OperationTracer {
	t := &OperationTracer{metrics: metrics}
	if providers != nil && providers.Tracer != nil {
		t.tracer = providers.Tracer
	} else {
		t.tracer = otel.Tracer(TracerName)
	}
	return t
}

// TraceRun creates a span for a whole run
func (ot *OperationTracer) TraceRun(ctx context.Context, runID, label string, families []string) (context.Context, trace.Span) {
	return ot.tracer.Start(ctx, "run.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.label", label),
			attribute.StringSlice("run.families", families),
		),
	)
}

// TraceStep creates a span for one step
func (ot *OperationTracer) TraceStep(ctx context.Context, runID, stepID string) (context.Context, trace.Span) {
	return ot.tracer.Start(ctx, fmt.Sprintf("run.step.%s", stepID),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("step.id", stepID),
		),
	)
}

// RecordStepCompletion closes a step span and records its metrics
func (ot *OperationTracer) RecordStepCompletion(ctx context.Context, span trace.Span, stepID string, duration time.Duration, err error) {
	status := string(StepStatusCompleted)
	if err != nil {
		status = string(StepStatusFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(
		attribute.String("step.status", status),
		attribute.Float64("step.duration_seconds", duration.Seconds()),
	)
	ot.metrics.RecordStep(ctx, stepID, status, duration)
	span.End()
}

// RecordStepSkipped counts a step that never ran
func (ot *OperationTracer) RecordStepSkipped(ctx context.Context, stepID string) {
	ot.metrics.RecordStep(ctx, stepID, string(StepStatusSkipped), 0)
}

// RecordRunCompletion closes the run span and records the outcome
func (ot *OperationTracer) RecordRunCompletion(ctx context.Context, span trace.Span, status string, duration time.Duration, err error) {
	if err != nil {
		infrastructure.RecordError(ctx, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(
		attribute.String("run.status", status),
		attribute.Float64("run.duration_seconds", duration.Seconds()),
	)
	ot.metrics.RecordRun(ctx, status)
	span.End()
}
