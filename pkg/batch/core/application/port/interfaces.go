// Package port declares the contracts between the dumpshift step engine and the
// components it runs.
package port

import (
	"context"

	model "github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
)

// Step is a single unit executed within a batch, e.g. cleaning one table's dump.
type Step interface {
	// Execute runs the step and records its outcome on stepExecution.
	//
	// Parameters:
	//   ctx: The context for the operation.
	//   jobExecution: The current JobExecution instance.
	//   stepExecution: The current StepExecution instance.
	//
	// Returns:
	//   error: The failure of the step, also recorded on stepExecution.
	Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error
	// StepName returns the logical name of the step.
	StepName() string
	// ID returns the unique ID of the step definition.
	ID() string
}

// Tasklet is the interface for a step that performs a single operation.
type Tasklet interface {
	// Execute executes the business logic of the Tasklet.
	// Returns an ExitStatus such as ExitStatusCompleted upon success.
	Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error)
	// Close releases resources.
	Close(ctx context.Context) error
	// SetExecutionContext sets the ExecutionContext.
	SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error
	// GetExecutionContext retrieves the ExecutionContext.
	GetExecutionContext(ctx context.Context) (model.ExecutionContext, error)
}

// StepExecutionListener is an interface for handling step execution events.
type StepExecutionListener interface {
	// BeforeStep is called just before a step execution starts.
	BeforeStep(ctx context.Context, stepExecution *model.StepExecution)
	// AfterStep is called after a step execution completes (regardless of success or failure).
	AfterStep(ctx context.Context, stepExecution *model.StepExecution)
}

// JobExecutionListener is an interface for handling job execution events.
type JobExecutionListener interface {
	// BeforeJob is called just before a job execution starts.
	BeforeJob(ctx context.Context, jobExecution *model.JobExecution)
	// AfterJob is called after a job execution completes (regardless of success or failure).
	AfterJob(ctx context.Context, jobExecution *model.JobExecution)
}

type contextKey string

// StepExecutionKey is the context key under which the running StepExecution is stored.
const StepExecutionKey contextKey = "stepExecution"

// GetContextWithStepExecution stores a StepExecution in the Context.
func GetContextWithStepExecution(ctx context.Context, se *model.StepExecution) context.Context {
	return context.WithValue(ctx, StepExecutionKey, se)
}

// GetStepExecutionFromContext retrieves a StepExecution from the Context. Returns nil if not found.
func GetStepExecutionFromContext(ctx context.Context) *model.StepExecution {
	if se, ok := ctx.Value(StepExecutionKey).(*model.StepExecution); ok {
		return se
	}
	return nil
}
