// Package inmemory provides an in-memory implementation of the JobRepository interface.
// dumpshift runs are one-shot, so execution metadata lives only as long as the process.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
	"github.com/tigerroll/dumpshift/pkg/batch/core/domain/repository"
)

// InMemoryJobRepository holds all execution metadata in maps.
type InMemoryJobRepository struct {
	jobExecutions  map[string]*model.JobExecution
	stepExecutions map[string]*model.StepExecution
	mu             sync.RWMutex
}

// NewInMemoryJobRepository creates and initializes a new instance of InMemoryJobRepository.
func NewInMemoryJobRepository() *InMemoryJobRepository {
	return &InMemoryJobRepository{
		jobExecutions:  make(map[string]*model.JobExecution),
		stepExecutions: make(map[string]*model.StepExecution),
	}
}

// SaveJobExecution persists a new JobExecution.
// It returns an error if a JobExecution with the same ID already exists.
func (r *InMemoryJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobExecutions[jobExecution.ID]; exists {
		return fmt.Errorf("JobExecution with ID %s already exists", jobExecution.ID)
	}
	r.jobExecutions[jobExecution.ID] = jobExecution
	return nil
}

// UpdateJobExecution updates an existing JobExecution.
func (r *InMemoryJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobExecutions[jobExecution.ID]; !exists {
		return fmt.Errorf("JobExecution with ID %s not found for update", jobExecution.ID)
	}
	r.jobExecutions[jobExecution.ID] = jobExecution
	return nil
}

// FindJobExecutionByID finds a JobExecution by its ID and attaches its StepExecutions.
func (r *InMemoryJobRepository) FindJobExecutionByID(ctx context.Context, id string) (*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobExecution, ok := r.jobExecutions[id]
	if !ok {
		return nil, repository.ErrJobExecutionNotFound
	}
	return r.cloneWithSteps(jobExecution), nil
}

// FindJobExecutionsByName returns every execution of jobName, latest first.
// StepExecutions are not loaded.
func (r *InMemoryJobRepository) FindJobExecutionsByName(ctx context.Context, jobName string) ([]*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var executions []*model.JobExecution
	for _, je := range r.jobExecutions {
		if je.JobName != jobName {
			continue
		}
		cloned := *je
		cloned.StepExecutions = nil
		executions = append(executions, &cloned)
	}
	sort.Slice(executions, func(i, j int) bool {
		return executions[j].CreateTime.Before(executions[i].CreateTime)
	})
	return executions, nil
}

// caller holds r.mu.
func (r *InMemoryJobRepository) cloneWithSteps(je *model.JobExecution) *model.JobExecution {
	cloned := *je
	cloned.StepExecutions = make([]*model.StepExecution, 0)
	for _, se := range r.stepExecutions {
		if se.JobExecutionID == cloned.ID {
			cloned.StepExecutions = append(cloned.StepExecutions, se)
		}
	}
	sort.SliceStable(cloned.StepExecutions, func(i, j int) bool {
		return cloned.StepExecutions[i].StartTime.Before(cloned.StepExecutions[j].StartTime)
	})
	return &cloned
}

// SaveStepExecution persists a new StepExecution.
func (r *InMemoryJobRepository) SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stepExecutions[stepExecution.ID]; exists {
		return fmt.Errorf("StepExecution with ID %s already exists", stepExecution.ID)
	}
	r.stepExecutions[stepExecution.ID] = stepExecution
	return nil
}

// UpdateStepExecution updates an existing StepExecution.
func (r *InMemoryJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stepExecutions[stepExecution.ID]; !exists {
		return fmt.Errorf("StepExecution with ID %s not found for update", stepExecution.ID)
	}
	r.stepExecutions[stepExecution.ID] = stepExecution
	return nil
}

// FindStepExecutionByID finds a StepExecution by its ID and returns a copy.
func (r *InMemoryJobRepository) FindStepExecutionByID(ctx context.Context, id string) (*model.StepExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stepExecution, ok := r.stepExecutions[id]
	if !ok {
		return nil, repository.ErrStepExecutionNotFound
	}
	cloned := *stepExecution
	return &cloned, nil
}

// Close releases resources used by the repository. It holds none.
func (r *InMemoryJobRepository) Close() error {
	return nil
}

var _ repository.JobRepository = (*InMemoryJobRepository)(nil)
