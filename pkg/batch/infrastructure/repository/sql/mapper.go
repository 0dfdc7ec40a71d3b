package sql

import (
	model "github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/serialization"
)

func fromDomainJobExecution(je *model.JobExecution) (*JobExecutionEntity, error) {
	params, err := serialization.MarshalJobParameters(je.Parameters.Params)
	if err != nil {
		return nil, err
	}
	failures, err := serialization.MarshalFailures(je.Failures)
	if err != nil {
		return nil, err
	}
	ec, err := serialization.MarshalExecutionContext(je.ExecutionContext)
	if err != nil {
		return nil, err
	}
	return &JobExecutionEntity{
		ID:               je.ID,
		JobName:          je.JobName,
		Parameters:       params,
		StartTime:        je.StartTime,
		EndTime:          je.EndTime,
		Status:           string(je.Status),
		ExitStatus:       string(je.ExitStatus),
		Failures:         failures,
		CreateTime:       je.CreateTime,
		LastUpdated:      je.LastUpdated,
		ExecutionContext: ec,
		CurrentStepName:  je.CurrentStepName,
	}, nil
}

func toDomainJobExecution(entity *JobExecutionEntity) (*model.JobExecution, error) {
	params, err := serialization.UnmarshalJobParameters(entity.Parameters)
	if err != nil {
		return nil, err
	}
	failures, err := serialization.UnmarshalFailures(entity.Failures)
	if err != nil {
		return nil, err
	}
	ec, err := serialization.UnmarshalExecutionContext(entity.ExecutionContext)
	if err != nil {
		return nil, err
	}
	return &model.JobExecution{
		ID:               entity.ID,
		JobName:          entity.JobName,
		Parameters:       model.JobParameters{Params: params},
		StartTime:        entity.StartTime,
		EndTime:          entity.EndTime,
		Status:           model.JobStatus(entity.Status),
		ExitStatus:       model.ExitStatus(entity.ExitStatus),
		Failures:         failures,
		CreateTime:       entity.CreateTime,
		LastUpdated:      entity.LastUpdated,
		StepExecutions:   make([]*model.StepExecution, 0),
		ExecutionContext: ec,
		CurrentStepName:  entity.CurrentStepName,
	}, nil
}

func fromDomainStepExecution(se *model.StepExecution) (*StepExecutionEntity, error) {
	failures, err := serialization.MarshalFailures(se.Failures)
	if err != nil {
		return nil, err
	}
	ec, err := serialization.MarshalExecutionContext(se.ExecutionContext)
	if err != nil {
		return nil, err
	}
	return &StepExecutionEntity{
		ID:               se.ID,
		StepName:         se.StepName,
		JobExecutionID:   se.JobExecutionID,
		StartTime:        se.StartTime,
		EndTime:          se.EndTime,
		Status:           string(se.Status),
		ExitStatus:       string(se.ExitStatus),
		Failures:         failures,
		BytesRead:        se.BytesRead,
		BytesWritten:     se.BytesWritten,
		ExecutionContext: ec,
		LastUpdated:      se.LastUpdated,
	}, nil
}

// The JobExecution back-reference is left for the caller to set.
func toDomainStepExecution(entity *StepExecutionEntity) (*model.StepExecution, error) {
	failures, err := serialization.UnmarshalFailures(entity.Failures)
	if err != nil {
		return nil, err
	}
	ec, err := serialization.UnmarshalExecutionContext(entity.ExecutionContext)
	if err != nil {
		return nil, err
	}
	return &model.StepExecution{
		ID:               entity.ID,
		StepName:         entity.StepName,
		JobExecutionID:   entity.JobExecutionID,
		StartTime:        entity.StartTime,
		EndTime:          entity.EndTime,
		Status:           model.JobStatus(entity.Status),
		ExitStatus:       model.ExitStatus(entity.ExitStatus),
		Failures:         failures,
		BytesRead:        entity.BytesRead,
		BytesWritten:     entity.BytesWritten,
		ExecutionContext: ec,
		LastUpdated:      entity.LastUpdated,
	}, nil
}
