package orchestrator

import (
	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/dumpshift/internal/verify"
	model "github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
)

// BatchReport aggregates the outcome of a batch. Verification results never change
// the outcome of a table.
type BatchReport struct {
	JobExecution    *model.JobExecution
	Jobs            []*TableJob
	VerificationRan bool
	Verification    *verify.Report
	VerificationErr error
}

// Succeeded returns the imported tables.
func (r *BatchReport) Succeeded() []*TableJob {
	return r.filter(func(j *TableJob) bool { return j.State == StateImported })
}

// Failed returns the failed tables.
func (r *BatchReport) Failed() []*TableJob {
	return r.filter(func(j *TableJob) bool { return j.State == StateFailed })
}

func (r *BatchReport) filter(keep func(*TableJob) bool) []*TableJob {
	var out []*TableJob
	for _, j := range r.Jobs {
		if keep(j) {
			out = append(out, j)
		}
	}
	return out
}

// Err aggregates the errors of the failed tables, or returns nil.
func (r *BatchReport) Err() error {
	var result *multierror.Error
	for _, j := range r.Failed() {
		result = multierror.Append(result, j.Err)
	}
	return result.ErrorOrNil()
}
