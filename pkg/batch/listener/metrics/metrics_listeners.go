package metrics

import (
	"context"

	port "github.com/tigerroll/dumpshift/pkg/batch/core/application/port"
	model "github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
	"github.com/tigerroll/dumpshift/pkg/batch/core/metrics"
)

// --- Job Execution Listener ---

type MetricsJobListener struct {
	recorder metrics.MetricRecorder
}

func NewMetricsJobListener(recorder metrics.MetricRecorder) port.JobExecutionListener {
	return &MetricsJobListener{recorder: recorder}
}

func (l *MetricsJobListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	l.recorder.RecordJobStart(ctx, jobExecution)
}

func (l *MetricsJobListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	l.recorder.RecordJobEnd(ctx, jobExecution)
}

var _ port.JobExecutionListener = (*MetricsJobListener)(nil)

// --- Step Execution Listener ---

type MetricsStepListener struct {
	recorder metrics.MetricRecorder
}

func NewMetricsStepListener(recorder metrics.MetricRecorder) port.StepExecutionListener {
	return &MetricsStepListener{recorder: recorder}
}

func (l *MetricsStepListener) BeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	l.recorder.RecordStepStart(ctx, stepExecution)
}

func (l *MetricsStepListener) AfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	l.recorder.RecordStepEnd(ctx, stepExecution)
}

var _ port.StepExecutionListener = (*MetricsStepListener)(nil)
