// Package repository declares where execution metadata of a dumpshift batch is kept.
package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
)

var (
	// ErrJobExecutionNotFound is returned when a JobExecution is not found.
	ErrJobExecutionNotFound = errors.New("job execution not found")
	// ErrStepExecutionNotFound is returned when a StepExecution is not found.
	ErrStepExecutionNotFound = errors.New("step execution not found")
)

func init() {
	exception.RegisterErrorType("ErrJobExecutionNotFound", ErrJobExecutionNotFound)
	exception.RegisterErrorType("ErrStepExecutionNotFound", ErrStepExecutionNotFound)
}

// JobExecution persists batch runs.
type JobExecution interface {
	SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error
	UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error
	// FindJobExecutionByID returns a copy of the execution with its steps ordered by start time.
	FindJobExecutionByID(ctx context.Context, executionID string) (*model.JobExecution, error)
	// FindJobExecutionsByName returns executions of jobName, latest first.
	FindJobExecutionsByName(ctx context.Context, jobName string) ([]*model.JobExecution, error)
}

// StepExecution persists table phases.
type StepExecution interface {
	SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error
	UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error
	FindStepExecutionByID(ctx context.Context, executionID string) (*model.StepExecution, error)
}

// JobRepository combines both stores.
type JobRepository interface {
	JobExecution
	StepExecution

	// Close releases resources used by the repository.
	Close() error
}
