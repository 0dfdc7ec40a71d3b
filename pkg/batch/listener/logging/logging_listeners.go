package logging

import (
	"context"
	"strings"

	port "github.com/tigerroll/dumpshift/pkg/batch/core/application/port"
	model "github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

// --- Job Execution Listener ---

type LoggingJobListener struct{}

func NewLoggingJobListener() port.JobExecutionListener {
	return &LoggingJobListener{}
}

func (l *LoggingJobListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	logger.Infof("JobExecutionListener: BeforeJob - JobName: %s, ID: %s, Params: %+v", jobExecution.JobName, jobExecution.ID, jobExecution.Parameters.Params)
}

func (l *LoggingJobListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	logger.Infof("JobExecutionListener: AfterJob - JobName: %s, Status: %s, ExitStatus: %s, Duration: %s",
		jobExecution.JobName, jobExecution.Status, jobExecution.ExitStatus, jobExecution.Duration())
	if len(jobExecution.Failures) > 0 {
		logger.Warnf("JobExecutionListener: %d failure(s): %s", len(jobExecution.Failures), strings.Join(jobExecution.Failures, "; "))
	}
}

var _ port.JobExecutionListener = (*LoggingJobListener)(nil)

// --- Step Execution Listener ---

type LoggingStepListener struct{}

func NewLoggingStepListener() port.StepExecutionListener {
	return &LoggingStepListener{}
}

func (l *LoggingStepListener) BeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	logger.Debugf("StepExecutionListener: BeforeStep - StepName: %s, ID: %s", stepExecution.StepName, stepExecution.ID)
}

func (l *LoggingStepListener) AfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	if stepExecution.Status == model.BatchStatusFailed {
		logger.Errorf("StepExecutionListener: AfterStep - StepName: %s, Status: %s, Failures: %v", stepExecution.StepName, stepExecution.Status, stepExecution.Failures)
		return
	}
	logger.Infof("StepExecutionListener: AfterStep - StepName: %s, Status: %s, ExitStatus: %s, Read: %d bytes, Written: %d bytes",
		stepExecution.StepName, stepExecution.Status, stepExecution.ExitStatus, stepExecution.BytesRead, stepExecution.BytesWritten)
}

var _ port.StepExecutionListener = (*LoggingStepListener)(nil)
