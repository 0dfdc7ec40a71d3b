package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
)

// MetricRecorder records metrics of a dumpshift batch.
// Implementations must be safe for concurrent use.
type MetricRecorder interface {
	// RecordJobStart records the start of a JobExecution.
	RecordJobStart(ctx context.Context, execution *model.JobExecution)
	// RecordJobEnd records the end of a JobExecution.
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)
	// RecordStepStart records the start of a StepExecution.
	RecordStepStart(ctx context.Context, execution *model.StepExecution)
	// RecordStepEnd records the end of a StepExecution.
	RecordStepEnd(ctx context.Context, execution *model.StepExecution)

	// RecordTableOutcome counts a finished table job.
	//
	// outcome: "succeeded", "cleaning_failed" or "execution_failed".
	RecordTableOutcome(ctx context.Context, table string, outcome string)

	// RecordBytes adds n to the byte counter of a pipeline stage
	// (e.g. "decoded", "rewritten", "extracted").
	RecordBytes(ctx context.Context, stage string, n int)

	// RecordRuleMatches adds the number of matches a rewrite rule made.
	RecordRuleMatches(ctx context.Context, rule string, count int)

	// RecordDuration records the execution time of a specific operation.
	//
	// tags: additional labels, e.g. `{"channel": "shell"}`.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
