package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"claimsledger/internal/infrastructure"
)

// TracerName names the pipeline tracer.
const TracerName = "claimsledger.pipeline"

// StageTracer wraps stage executions in spans and metric records.
type StageTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewStageTracer uses the global tracer provider. Nil metrics record nothing.
func NewStageTracer(metrics *infrastructure.PipelineMetrics) *StageTracer {
	if metrics == nil {
		metrics = infrastructure.NoopPipelineMetrics()
	}
	return &StageTracer{tracer: otel.Tracer(TracerName), metrics: metrics}
}

// TraceRun creates a span for the whole run.
func (t *StageTracer) TraceRun(ctx context.Context, runID string, stages []string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.StringSlice("run.stages", stages),
		),
	)
}

// TraceStage creates a span for one stage.
func (t *StageTracer) TraceStage(ctx context.Context, runID, stageID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "pipeline.stage."+stageID,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("stage.id", stageID),
		),
	)
}

// RecordStage closes out a stage span and records its metrics.
func (t *StageTracer) RecordStage(ctx context.Context, span trace.Span, stageID string, duration time.Duration, result *StepResult, err error) {
	rowsIn, rowsOut := 0, 0
	if result != nil {
		rowsIn, rowsOut = result.RowsIn, result.RowsOut
		infrastructure.RecordDiagnostics(ctx, t.metrics, result.Diagnostics)
	}
	infrastructure.RecordStageMetrics(ctx, t.metrics, stageID, duration, rowsIn, rowsOut, err)

	span.SetAttributes(
		attribute.Float64("stage.duration_seconds", duration.Seconds()),
		attribute.Int("stage.rows_in", rowsIn),
		attribute.Int("stage.rows_out", rowsOut),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	infrastructure.AddSpanEvent(ctx, "stage.completed", map[string]interface{}{
		"stage_id": stageID,
		"rows_out": rowsOut,
	})
	span.SetStatus(codes.Ok, "stage completed")
}
