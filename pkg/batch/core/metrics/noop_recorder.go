package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
)

// NoOpMetricRecorder is an implementation of MetricRecorder that does nothing.
// It is used in tests and by commands that do not run a batch.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a new instance of NoOpMetricRecorder.
func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

func (r *NoOpMetricRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution)   {}
func (r *NoOpMetricRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution)     {}
func (r *NoOpMetricRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {}
func (r *NoOpMetricRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution)   {}
func (r *NoOpMetricRecorder) RecordTableOutcome(ctx context.Context, table string, outcome string) {
}
func (r *NoOpMetricRecorder) RecordBytes(ctx context.Context, stage string, n int)            {}
func (r *NoOpMetricRecorder) RecordRuleMatches(ctx context.Context, rule string, count int) {}
func (r *NoOpMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
}

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// NoOpTracer is an implementation of Tracer that does nothing.
type NoOpTracer struct{}

// NewNoOpTracer creates a new instance of NoOpTracer.
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

// StartJobSpan returns ctx unchanged.
func (t *NoOpTracer) StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func()) {
	return ctx, func() {}
}

// StartStepSpan returns ctx unchanged.
func (t *NoOpTracer) StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}

func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {}

var _ Tracer = (*NoOpTracer)(nil)
