package metrics

import (
	"context"

	model "github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
)

// Tracer is an abstract interface for distributed tracing.
type Tracer interface {
	// StartJobSpan starts a Span for a JobExecution.
	//
	// Returns: A context with the new Span set, and a function to end the Span.
	StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func())

	// StartStepSpan starts a Span for a StepExecution.
	// ctx is typically the one returned by StartJobSpan so that the span is nested.
	StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func())

	// RecordError records an error in the current Span.
	//
	// module: where the error occurred (e.g., "channel", "encoding").
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent records an event in the current Span.
	//
	// attributes: e.g. `map[string]interface{}{"encoding": "latin-1", "bytes": 2048}`
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
