package metrics

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	model "github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/dumpshift/pkg/batch/core/metrics"
	logger "github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

// OpenTelemetryTracer is an implementation of metrics.Tracer using OpenTelemetry.
type OpenTelemetryTracer struct {
	tracer trace.Tracer
}

// NewOpenTelemetryTracer wraps an OpenTelemetry tracer.
func NewOpenTelemetryTracer(tracer trace.Tracer) *OpenTelemetryTracer {
	return &OpenTelemetryTracer{tracer: tracer}
}

// StartJobSpan starts a new span for a JobExecution. The span status follows the
// execution status at the time the returned function is called.
func (t *OpenTelemetryTracer) StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func()) {
	logger.Debugf("Tracer: starting span for Job '%s'", execution.JobName)
	ctx, span := t.tracer.Start(ctx, "job "+execution.JobName, trace.WithAttributes(
		attribute.String("dumpshift.job.id", execution.ID),
		attribute.String("dumpshift.job.name", execution.JobName),
	))
	return ctx, func() {
		span.SetAttributes(
			attribute.String("dumpshift.status", execution.Status.String()),
			attribute.String("dumpshift.exit_status", execution.ExitStatus.String()),
		)
		if execution.Status == model.BatchStatusFailed || execution.ExitStatus == model.ExitStatusCompletedWithFailures {
			span.SetStatus(codes.Error, execution.ExitStatus.String())
		}
		span.End()
	}
}

// StartStepSpan starts a new span for a StepExecution.
func (t *OpenTelemetryTracer) StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func()) {
	logger.Debugf("Tracer: starting span for Step '%s'", execution.StepName)
	ctx, span := t.tracer.Start(ctx, "step "+execution.StepName, trace.WithAttributes(
		attribute.String("dumpshift.step.id", execution.ID),
		attribute.String("dumpshift.step.name", execution.StepName),
	))
	return ctx, func() {
		span.SetAttributes(
			attribute.String("dumpshift.status", execution.Status.String()),
			attribute.Int("dumpshift.bytes_read", execution.BytesRead),
			attribute.Int("dumpshift.bytes_written", execution.BytesWritten),
		)
		if execution.Status == model.BatchStatusFailed {
			span.SetStatus(codes.Error, execution.ExitStatus.String())
		}
		span.End()
	}
}

// RecordError records an error in the current span.
func (t *OpenTelemetryTracer) RecordError(ctx context.Context, module string, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(attribute.String("dumpshift.module", module)))
	span.SetStatus(codes.Error, err.Error())
}

// RecordEvent records an event in the current span.
func (t *OpenTelemetryTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(toAttributes(attributes)...))
}

func toAttributes(m map[string]interface{}) []attribute.KeyValue {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]attribute.KeyValue, 0, len(m))
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			attrs = append(attrs, attribute.String(k, v))
		case int:
			attrs = append(attrs, attribute.Int(k, v))
		case int64:
			attrs = append(attrs, attribute.Int64(k, v))
		case float64:
			attrs = append(attrs, attribute.Float64(k, v))
		case bool:
			attrs = append(attrs, attribute.Bool(k, v))
		case []string:
			attrs = append(attrs, attribute.StringSlice(k, v))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprint(v)))
		}
	}
	return attrs
}

var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)
