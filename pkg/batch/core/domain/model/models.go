// Package model holds the execution records kept for every dumpshift run:
// one JobExecution per batch and one StepExecution per table phase.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

// JobStatus represents the lifecycle state of a job or step execution.
type JobStatus string

const (
	BatchStatusStarting  JobStatus = "STARTING"
	BatchStatusStarted   JobStatus = "STARTED"
	BatchStatusCompleted JobStatus = "COMPLETED"
	BatchStatusFailed    JobStatus = "FAILED"
	BatchStatusAbandoned JobStatus = "ABANDONED"
)

// String returns the string representation of the JobStatus.
func (s JobStatus) String() string {
	return string(s)
}

// IsFinished reports whether s is terminal.
func (s JobStatus) IsFinished() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusAbandoned:
		return true
	default:
		return false
	}
}

// ToExitStatus converts the JobStatus to its corresponding ExitStatus.
func (s JobStatus) ToExitStatus() ExitStatus {
	switch s {
	case BatchStatusCompleted:
		return ExitStatusCompleted
	case BatchStatusFailed:
		return ExitStatusFailed
	case BatchStatusAbandoned:
		return ExitStatusAbandoned
	default:
		return ExitStatusUnknown
	}
}

// ExitStatus represents the detailed status upon job/step completion.
type ExitStatus string

const (
	ExitStatusUnknown   ExitStatus = "UNKNOWN"
	ExitStatusCompleted ExitStatus = "COMPLETED"
	ExitStatusFailed    ExitStatus = "FAILED"
	ExitStatusAbandoned ExitStatus = "ABANDONED"
	ExitStatusNoOp      ExitStatus = "NO_OP"
	// ExitStatusCompletedWithFailures marks a batch that ran to the end while some tables failed.
	ExitStatusCompletedWithFailures ExitStatus = "COMPLETED_WITH_FAILURES"
)

// String returns the ExitStatus as a string.
func (s ExitStatus) String() string {
	return string(s)
}

// ExecutionContext is a key-value store attached to an execution.
type ExecutionContext map[string]interface{}

// NewExecutionContext creates a new empty ExecutionContext.
func NewExecutionContext() ExecutionContext {
	return make(ExecutionContext)
}

// Put sets key to value.
func (ec ExecutionContext) Put(key string, value interface{}) {
	ec[key] = value
}

// Get retrieves the value for key.
func (ec ExecutionContext) Get(key string) (interface{}, bool) {
	val, ok := ec[key]
	return val, ok
}

// GetString retrieves the value for key as a string.
func (ec ExecutionContext) GetString(key string) (string, bool) {
	val, ok := ec[key]
	if !ok {
		return "", false
	}
	str, ok := val.(string)
	return str, ok
}

// GetInt retrieves the value for key as an int. float64 values are truncated.
func (ec ExecutionContext) GetInt(key string) (int, bool) {
	switch v := ec[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// Copy creates a shallow copy of the ExecutionContext.
func (ec ExecutionContext) Copy() ExecutionContext {
	out := make(ExecutionContext, len(ec))
	for k, v := range ec {
		out[k] = v
	}
	return out
}

// JobParameters holds the parameters a batch was launched with.
type JobParameters struct {
	Params map[string]interface{}
}

// NewJobParameters creates empty JobParameters.
func NewJobParameters() JobParameters {
	return JobParameters{Params: make(map[string]interface{})}
}

// Put sets a parameter.
func (jp JobParameters) Put(key string, value interface{}) {
	jp.Params[key] = value
}

// GetString retrieves a parameter as a string.
func (jp JobParameters) GetString(key string) (string, bool) {
	s, ok := jp.Params[key].(string)
	return s, ok
}

// FailureList holds a list of error messages.
type FailureList []string

// JobExecution is one run of a batch.
type JobExecution struct {
	ID               string
	JobName          string
	Parameters       JobParameters
	StartTime        time.Time
	EndTime          *time.Time
	Status           JobStatus
	ExitStatus       ExitStatus
	Failures         FailureList
	CreateTime       time.Time
	LastUpdated      time.Time
	StepExecutions   []*StepExecution
	ExecutionContext ExecutionContext
	CurrentStepName  string
}

// StepExecution is one phase (clean or import) of one table.
type StepExecution struct {
	ID               string
	StepName         string
	JobExecution     *JobExecution
	JobExecutionID   string
	StartTime        time.Time
	EndTime          *time.Time
	Status           JobStatus
	ExitStatus       ExitStatus
	Failures         FailureList
	BytesRead        int
	BytesWritten     int
	ExecutionContext ExecutionContext
	LastUpdated      time.Time
}

// NewID generates a new UUID string.
func NewID() string {
	return uuid.New().String()
}

// NewJobExecution creates a JobExecution in the STARTING state.
func NewJobExecution(jobName string, params JobParameters) *JobExecution {
	now := time.Now()
	return &JobExecution{
		ID:               NewID(),
		JobName:          jobName,
		Parameters:       params,
		StartTime:        now,
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusUnknown,
		CreateTime:       now,
		LastUpdated:      now,
		Failures:         make(FailureList, 0),
		StepExecutions:   make([]*StepExecution, 0),
		ExecutionContext: NewExecutionContext(),
	}
}

// Duration returns the elapsed time of the execution, up to now if it has not ended.
func (je *JobExecution) Duration() time.Duration {
	if je.EndTime == nil {
		return time.Since(je.StartTime)
	}
	return je.EndTime.Sub(je.StartTime)
}

func isValidJobTransition(current, next JobStatus) bool {
	switch current {
	case BatchStatusStarting:
		return next == BatchStatusStarted || next == BatchStatusFailed || next == BatchStatusAbandoned
	case BatchStatusStarted:
		return next == BatchStatusCompleted || next == BatchStatusFailed || next == BatchStatusAbandoned
	case BatchStatusFailed:
		return next == BatchStatusAbandoned
	default:
		return false
	}
}

// TransitionTo moves the JobExecution to newStatus if the transition is allowed.
func (je *JobExecution) TransitionTo(newStatus JobStatus) error {
	if !isValidJobTransition(je.Status, newStatus) {
		return fmt.Errorf("JobExecution (ID: %s): Invalid state transition: %s -> %s", je.ID, je.Status, newStatus)
	}
	je.Status = newStatus
	je.LastUpdated = time.Now()
	return nil
}

// MarkAsStarted updates the JobExecution status to STARTED.
func (je *JobExecution) MarkAsStarted() {
	if err := je.TransitionTo(BatchStatusStarted); err != nil {
		logger.Warnf("Could not update JobExecution (ID: %s) status to STARTED: %v", je.ID, err)
		je.Status = BatchStatusStarted
	}
}

// MarkAsCompleted sets the status to COMPLETED with the given exit status.
func (je *JobExecution) MarkAsCompleted(exitStatus ExitStatus) {
	if err := je.TransitionTo(BatchStatusCompleted); err != nil {
		logger.Warnf("Could not update JobExecution (ID: %s) status to COMPLETED: %v", je.ID, err)
		je.Status = BatchStatusCompleted
	}
	je.ExitStatus = exitStatus
	je.end()
}

// MarkAsFailed sets the status to FAILED and records err.
func (je *JobExecution) MarkAsFailed(err error) {
	if tErr := je.TransitionTo(BatchStatusFailed); tErr != nil {
		logger.Warnf("Could not update JobExecution (ID: %s) status to FAILED: %v", je.ID, tErr)
		je.Status = BatchStatusFailed
	}
	je.ExitStatus = ExitStatusFailed
	je.end()
	je.AddFailureException(err)
}

func (je *JobExecution) end() {
	now := time.Now()
	je.EndTime = &now
	je.LastUpdated = now
}

// AddFailureException records the message of err once.
func (je *JobExecution) AddFailureException(err error) {
	if err == nil {
		return
	}
	je.Failures = appendUnique(je.Failures, exception.ExtractErrorMessage(err))
	je.LastUpdated = time.Now()
}

// AddStepExecution attaches se to the job.
func (je *JobExecution) AddStepExecution(se *StepExecution) {
	je.StepExecutions = append(je.StepExecutions, se)
	je.CurrentStepName = se.StepName
}

// NewStepExecution creates a StepExecution in the STARTING state and attaches it to jobExecution.
func NewStepExecution(jobExecution *JobExecution, stepName string) *StepExecution {
	now := time.Now()
	se := &StepExecution{
		ID:               NewID(),
		StepName:         stepName,
		JobExecution:     jobExecution,
		JobExecutionID:   jobExecution.ID,
		StartTime:        now,
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusUnknown,
		Failures:         make(FailureList, 0),
		ExecutionContext: NewExecutionContext(),
		LastUpdated:      now,
	}
	jobExecution.AddStepExecution(se)
	return se
}

// Duration returns the elapsed time of the step.
func (se *StepExecution) Duration() time.Duration {
	if se.EndTime == nil {
		return time.Since(se.StartTime)
	}
	return se.EndTime.Sub(se.StartTime)
}

func isValidStepTransition(current, next JobStatus) bool {
	switch current {
	case BatchStatusStarting:
		return next == BatchStatusStarted || next == BatchStatusFailed || next == BatchStatusAbandoned
	case BatchStatusStarted:
		return next == BatchStatusCompleted || next == BatchStatusFailed || next == BatchStatusAbandoned
	default:
		return false
	}
}

// TransitionTo moves the StepExecution to newStatus if the transition is allowed.
func (se *StepExecution) TransitionTo(newStatus JobStatus) error {
	if !isValidStepTransition(se.Status, newStatus) {
		return fmt.Errorf("StepExecution (ID: %s): Invalid state transition: %s -> %s", se.ID, se.Status, newStatus)
	}
	se.Status = newStatus
	se.LastUpdated = time.Now()
	return nil
}

// MarkAsStarted updates the StepExecution status to STARTED.
func (se *StepExecution) MarkAsStarted() {
	if err := se.TransitionTo(BatchStatusStarted); err != nil {
		logger.Warnf("Could not update StepExecution (ID: %s) status to STARTED: %v", se.ID, err)
		se.Status = BatchStatusStarted
	}
	se.StartTime = time.Now()
}

// MarkAsCompleted sets the status to COMPLETED with the given exit status.
func (se *StepExecution) MarkAsCompleted(exitStatus ExitStatus) {
	if err := se.TransitionTo(BatchStatusCompleted); err != nil {
		logger.Warnf("Could not update StepExecution (ID: %s) status to COMPLETED: %v", se.ID, err)
		se.Status = BatchStatusCompleted
	}
	se.ExitStatus = exitStatus
	se.end()
}

// MarkAsFailed sets the status to FAILED and records err.
func (se *StepExecution) MarkAsFailed(err error) {
	if tErr := se.TransitionTo(BatchStatusFailed); tErr != nil {
		logger.Warnf("Could not update StepExecution (ID: %s) status to FAILED: %v", se.ID, tErr)
		se.Status = BatchStatusFailed
	}
	se.ExitStatus = ExitStatusFailed
	se.end()
	se.AddFailureException(err)
}

func (se *StepExecution) end() {
	now := time.Now()
	se.EndTime = &now
	se.LastUpdated = now
}

// AddFailureException records the message of err once.
func (se *StepExecution) AddFailureException(err error) {
	if err == nil {
		return
	}
	se.Failures = appendUnique(se.Failures, exception.ExtractErrorMessage(err))
	se.LastUpdated = time.Now()
}

func appendUnique(list FailureList, msg string) FailureList {
	for _, existing := range list {
		if existing == msg {
			logger.Debugf("Skipped adding duplicate failure '%s'.", msg)
			return list
		}
	}
	return append(list, msg)
}
