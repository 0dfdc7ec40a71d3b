package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	model "github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/dumpshift/pkg/batch/core/metrics"
)

// OTelRecorder records the same measurements as PrometheusRecorder through an
// OpenTelemetry meter, so that they can be pushed to an OTLP collector.
type OTelRecorder struct {
	jobDuration       metric.Float64Histogram
	stepDuration      metric.Float64Histogram
	tables            metric.Int64Counter
	bytes             metric.Int64Counter
	ruleMatches       metric.Int64Counter
	operationDuration metric.Float64Histogram
}

// NewOTelRecorder creates the instruments on meter.
func NewOTelRecorder(meter metric.Meter) (*OTelRecorder, error) {
	r := &OTelRecorder{}
	var err error
	if r.jobDuration, err = meter.Float64Histogram("dumpshift.job.duration",
		metric.WithDescription("Duration of dumpshift batch executions."), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.stepDuration, err = meter.Float64Histogram("dumpshift.step.duration",
		metric.WithDescription("Duration of table phases."), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.tables, err = meter.Int64Counter("dumpshift.tables",
		metric.WithDescription("Table jobs by outcome.")); err != nil {
		return nil, err
	}
	if r.bytes, err = meter.Int64Counter("dumpshift.bytes",
		metric.WithDescription("Bytes passing through each pipeline stage."), metric.WithUnit("By")); err != nil {
		return nil, err
	}
	if r.ruleMatches, err = meter.Int64Counter("dumpshift.rule.matches",
		metric.WithDescription("Text spans rewritten by each dialect rule.")); err != nil {
		return nil, err
	}
	if r.operationDuration, err = meter.Float64Histogram("dumpshift.operation.duration",
		metric.WithDescription("Duration of individual operations."), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *OTelRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {}

func (r *OTelRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	if execution.EndTime == nil {
		return
	}
	r.jobDuration.Record(ctx, execution.EndTime.Sub(execution.StartTime).Seconds(), metric.WithAttributes(
		attribute.String("job_name", execution.JobName),
		attribute.String("status", execution.Status.String()),
		attribute.String("exit_status", execution.ExitStatus.String()),
	))
}

func (r *OTelRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {}

func (r *OTelRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	if execution.EndTime == nil {
		return
	}
	r.stepDuration.Record(ctx, execution.EndTime.Sub(execution.StartTime).Seconds(), metric.WithAttributes(
		attribute.String("job_name", jobNameOf(execution)),
		attribute.String("step_name", execution.StepName),
		attribute.String("status", execution.Status.String()),
	))
}

func (r *OTelRecorder) RecordTableOutcome(ctx context.Context, table string, outcome string) {
	r.tables.Add(ctx, 1, metric.WithAttributes(
		attribute.String("table", table),
		attribute.String("outcome", outcome),
	))
}

func (r *OTelRecorder) RecordBytes(ctx context.Context, stage string, n int) {
	if n <= 0 {
		return
	}
	r.bytes.Add(ctx, int64(n), metric.WithAttributes(attribute.String("stage", stage)))
}

func (r *OTelRecorder) RecordRuleMatches(ctx context.Context, rule string, count int) {
	if count <= 0 {
		return
	}
	r.ruleMatches.Add(ctx, int64(count), metric.WithAttributes(attribute.String("rule", rule)))
}

func (r *OTelRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	attrs := make([]attribute.KeyValue, 0, len(tags)+1)
	attrs = append(attrs, attribute.String("operation", name))
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	r.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

var _ metrics.MetricRecorder = (*OTelRecorder)(nil)
