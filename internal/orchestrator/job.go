package orchestrator

import (
	"fmt"
	"time"

	"github.com/tigerroll/dumpshift/pkg/batch/core/config"
)

// State is the position of a TableJob in its lifecycle.
type State string

const (
	StatePending  State = "PENDING"
	StateCleaned  State = "CLEANED"
	StateImported State = "IMPORTED"
	StateFailed   State = "FAILED"
)

// Reason tells which phase a failed TableJob failed in.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonCleaningFailed  Reason = "CLEANING_FAILED"
	ReasonExecutionFailed Reason = "EXECUTION_FAILED"
)

// Outcome summarizes a finished TableJob for reports and metrics.
type Outcome string

const (
	OutcomeSucceeded       Outcome = "succeeded"
	OutcomeCleaningFailed  Outcome = "cleaning_failed"
	OutcomeExecutionFailed Outcome = "execution_failed"
	OutcomePending         Outcome = "pending"
)

func (o Outcome) String() string {
	return string(o)
}

// TableJob is the import of one manifest entry.
type TableJob struct {
	Table   config.TableConfig
	Source  string
	Cleaned string

	State      State
	Reason     Reason
	Diagnostic string
	Err        error

	Encoding string
	BytesIn  int
	BytesOut int
	ExitCode int
	Duration time.Duration
}

// NewTableJob creates a pending job; the cleaned artifact goes to outputDir unless
// the entry names one.
func NewTableJob(table config.TableConfig, outputDir string) *TableJob {
	return &TableJob{
		Table:   table,
		Source:  table.Source,
		Cleaned: table.CleanedRef(outputDir),
		State:   StatePending,
	}
}

// Name returns the table name.
func (j *TableJob) Name() string {
	return j.Table.Name
}

// Outcome maps State and Reason onto an Outcome.
func (j *TableJob) Outcome() Outcome {
	switch {
	case j.State == StateImported:
		return OutcomeSucceeded
	case j.State == StateFailed && j.Reason == ReasonCleaningFailed:
		return OutcomeCleaningFailed
	case j.State == StateFailed:
		return OutcomeExecutionFailed
	default:
		return OutcomePending
	}
}

// Terminal reports whether the job reached IMPORTED or FAILED.
func (j *TableJob) Terminal() bool {
	return j.State == StateImported || j.State == StateFailed
}

func (j *TableJob) fail(reason Reason, diagnostic string, err error) {
	j.State = StateFailed
	j.Reason = reason
	j.Diagnostic = diagnostic
	j.Err = fmt.Errorf("table %s: %w", j.Name(), err)
}
