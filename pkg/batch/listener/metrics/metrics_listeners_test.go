package metrics_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
	coremetrics "github.com/tigerroll/dumpshift/pkg/batch/core/metrics"
	"github.com/tigerroll/dumpshift/pkg/batch/listener/metrics"
)

type countingRecorder struct {
	coremetrics.NoOpMetricRecorder
	jobStarts, jobEnds, stepStarts, stepEnds int
}

func (r *countingRecorder) RecordJobStart(context.Context, *model.JobExecution)   { r.jobStarts++ }
func (r *countingRecorder) RecordJobEnd(context.Context, *model.JobExecution)     { r.jobEnds++ }
func (r *countingRecorder) RecordStepStart(context.Context, *model.StepExecution) { r.stepStarts++ }
func (r *countingRecorder) RecordStepEnd(context.Context, *model.StepExecution)   { r.stepEnds++ }

func TestMetricsListeners_Forward(t *testing.T) {
	ctx := context.Background()
	rec := &countingRecorder{}
	jl := metrics.NewMetricsJobListener(rec)
	sl := metrics.NewMetricsStepListener(rec)

	je := model.NewJobExecution("import-tables", model.NewJobParameters())
	se := model.NewStepExecution(je, "usuario.import")

	jl.BeforeJob(ctx, je)
	sl.BeforeStep(ctx, se)
	sl.AfterStep(ctx, se)
	jl.AfterJob(ctx, je)

	assert.Equal(t, 1, rec.jobStarts)
	assert.Equal(t, 1, rec.jobEnds)
	assert.Equal(t, 1, rec.stepStarts)
	assert.Equal(t, 1, rec.stepEnds)
}
