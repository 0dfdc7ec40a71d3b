package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
)

// MultiRecorder fans every call out to several recorders.
type MultiRecorder struct {
	recorders []MetricRecorder
}

// NewMultiRecorder combines recorders. nil entries are ignored.
func NewMultiRecorder(recorders ...MetricRecorder) *MultiRecorder {
	m := &MultiRecorder{}
	for _, r := range recorders {
		if r != nil {
			m.recorders = append(m.recorders, r)
		}
	}
	return m
}

func (m *MultiRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {
	for _, r := range m.recorders {
		r.RecordJobStart(ctx, execution)
	}
}

func (m *MultiRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	for _, r := range m.recorders {
		r.RecordJobEnd(ctx, execution)
	}
}

func (m *MultiRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {
	for _, r := range m.recorders {
		r.RecordStepStart(ctx, execution)
	}
}

func (m *MultiRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	for _, r := range m.recorders {
		r.RecordStepEnd(ctx, execution)
	}
}

func (m *MultiRecorder) RecordTableOutcome(ctx context.Context, table string, outcome string) {
	for _, r := range m.recorders {
		r.RecordTableOutcome(ctx, table, outcome)
	}
}

func (m *MultiRecorder) RecordBytes(ctx context.Context, stage string, n int) {
	for _, r := range m.recorders {
		r.RecordBytes(ctx, stage, n)
	}
}

func (m *MultiRecorder) RecordRuleMatches(ctx context.Context, rule string, count int) {
	for _, r := range m.recorders {
		r.RecordRuleMatches(ctx, rule, count)
	}
}

func (m *MultiRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	for _, r := range m.recorders {
		r.RecordDuration(ctx, name, duration, tags)
	}
}

var _ MetricRecorder = (*MultiRecorder)(nil)
