// Package orchestrator runs tables through their clean and import steps.
//
// A batch is one JobExecution. Every table gets a "<table>.clean" and a "<table>.import"
// StepExecution, each run by a TaskletStep so that listeners, tracing and the job
// repository see the same lifecycle as any other step. A failing table never stops
// the batch; after the last table the verifier runs exactly once.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/tigerroll/dumpshift/internal/channel"
	"github.com/tigerroll/dumpshift/internal/dialect"
	"github.com/tigerroll/dumpshift/internal/encoding"
	"github.com/tigerroll/dumpshift/internal/verify"
	port "github.com/tigerroll/dumpshift/pkg/batch/core/application/port"
	"github.com/tigerroll/dumpshift/pkg/batch/core/config"
	model "github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/dumpshift/pkg/batch/core/domain/repository"
	"github.com/tigerroll/dumpshift/pkg/batch/core/metrics"
	"github.com/tigerroll/dumpshift/pkg/batch/engine/step/tasklet"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

const moduleName = "orchestrator"

// Job names under which executions are stored.
const (
	BatchJobName  = "import-tables"
	SingleJobName = "migrate"
)

// SchemaStepName is the step running Options.SchemaStep.
const SchemaStepName = "schema.migrate"

// Verifier runs the post-import verification.
type Verifier interface {
	Run(ctx context.Context) (*verify.Report, error)
}

// Options holds the collaborators of an Orchestrator. Recorder, Tracer and the
// listeners are optional.
type Options struct {
	Storage       Storage
	Decoder       *encoding.Resolver
	Rewriter      *dialect.Rewriter
	Channel       channel.Channel
	Verifier      Verifier
	Repository    repository.JobRepository
	JobListeners  []port.JobExecutionListener
	StepListeners []port.StepExecutionListener
	Recorder      metrics.MetricRecorder
	Tracer        metrics.Tracer
	OutputDir     string
	// SchemaStep, when set, runs once before the first table as SchemaStepName.
	SchemaStep port.Tasklet
}

// Orchestrator processes tables strictly one after another.
type Orchestrator struct {
	opts Options
}

// New validates opts and creates an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	switch {
	case opts.Storage == nil:
		return nil, exception.NewBatchErrorf(moduleName, "storage is required")
	case opts.Decoder == nil:
		return nil, exception.NewBatchErrorf(moduleName, "encoding resolver is required")
	case opts.Rewriter == nil:
		return nil, exception.NewBatchErrorf(moduleName, "rewriter is required")
	case opts.Channel == nil:
		return nil, exception.NewBatchErrorf(moduleName, "execution channel is required")
	case opts.Repository == nil:
		return nil, exception.NewBatchErrorf(moduleName, "job repository is required")
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NewNoOpMetricRecorder()
	}
	if opts.Tracer == nil {
		opts.Tracer = metrics.NewNoOpTracer()
	}
	return &Orchestrator{opts: opts}, nil
}

// WithRewriter returns a copy of o using rw.
func (o *Orchestrator) WithRewriter(rw *dialect.Rewriter) *Orchestrator {
	opts := o.opts
	opts.Rewriter = rw
	return &Orchestrator{opts: opts}
}

// WithVerifier returns a copy of o using v; nil disables verification.
func (o *Orchestrator) WithVerifier(v Verifier) *Orchestrator {
	opts := o.opts
	opts.Verifier = v
	return &Orchestrator{opts: opts}
}

// Run processes every table and then runs the verifier once. The error is non-nil only
// when the batch itself could not be tracked or ctx was cancelled; table failures are
// reported through the BatchReport.
func (o *Orchestrator) Run(ctx context.Context, tables []config.TableConfig) (*BatchReport, error) {
	params := model.NewJobParameters()
	params.Put("tables", len(tables))
	params.Put("rules", o.opts.Rewriter.RuleIDs())
	je := model.NewJobExecution(BatchJobName, params)

	ctx, endSpan := o.opts.Tracer.StartJobSpan(ctx, je)
	defer endSpan()

	if err := o.startJob(ctx, je); err != nil {
		return nil, err
	}
	report := &BatchReport{JobExecution: je}
	if err := o.prepareSchema(ctx, je); err != nil {
		return report, err
	}

	var runErr error
	for i, table := range tables {
		if err := ctx.Err(); err != nil {
			logger.Warnf("Batch interrupted before table %s (%d/%d).", table.Name, i+1, len(tables))
			runErr = err
			break
		}
		logger.Infof("--- Processing table: %s (%d/%d) ---", table.Name, i+1, len(tables))
		job, err := o.runTable(ctx, je, table, false)
		report.Jobs = append(report.Jobs, job)
		if err != nil {
			runErr = err
			break
		}
		o.opts.Recorder.RecordTableOutcome(ctx, job.Name(), job.Outcome().String())
		if job.State == StateFailed {
			logger.Errorf("Table %s failed (%s): %s", job.Name(), job.Reason, job.Diagnostic)
			je.AddFailureException(job.Err)
		}
	}

	if runErr == nil && o.opts.Verifier != nil {
		report.VerificationRan = true
		report.Verification, report.VerificationErr = o.opts.Verifier.Run(ctx)
		if report.VerificationErr != nil {
			logger.Warnf("Verification failed: %v", report.VerificationErr)
			o.opts.Tracer.RecordError(ctx, "verify", report.VerificationErr)
		}
	}

	switch {
	case runErr != nil:
		je.MarkAsFailed(runErr)
	case len(report.Failed()) > 0:
		je.MarkAsCompleted(model.ExitStatusCompletedWithFailures)
	default:
		je.MarkAsCompleted(model.ExitStatusCompleted)
	}
	o.endJob(ctx, je)
	return report, runErr
}

// RunSingle cleans and imports one table and stops at the first failure.
func (o *Orchestrator) RunSingle(ctx context.Context, table config.TableConfig) (*TableJob, error) {
	params := model.NewJobParameters()
	params.Put("source", table.Source)
	je := model.NewJobExecution(SingleJobName, params)

	ctx, endSpan := o.opts.Tracer.StartJobSpan(ctx, je)
	defer endSpan()

	if err := o.startJob(ctx, je); err != nil {
		return nil, err
	}
	if err := o.prepareSchema(ctx, je); err != nil {
		return nil, err
	}
	job, err := o.runTable(ctx, je, table, true)
	if err == nil && job.State == StateFailed {
		err = job.Err
	}
	if job != nil && job.Terminal() {
		o.opts.Recorder.RecordTableOutcome(ctx, job.Name(), job.Outcome().String())
	}
	if err != nil {
		je.MarkAsFailed(err)
	} else {
		je.MarkAsCompleted(model.ExitStatusCompleted)
	}
	o.endJob(ctx, je)
	return job, err
}

func (o *Orchestrator) startJob(ctx context.Context, je *model.JobExecution) error {
	if err := o.opts.Repository.SaveJobExecution(ctx, je); err != nil {
		return exception.NewBatchError(moduleName, "cannot store job execution", err, false, false)
	}
	je.MarkAsStarted()
	for _, l := range o.opts.JobListeners {
		l.BeforeJob(ctx, je)
	}
	if err := o.opts.Repository.UpdateJobExecution(ctx, je); err != nil {
		return exception.NewBatchError(moduleName, "cannot update job execution", err, false, false)
	}
	return nil
}

// prepareSchema runs the schema step. On failure the job is ended as FAILED.
func (o *Orchestrator) prepareSchema(ctx context.Context, je *model.JobExecution) error {
	if o.opts.SchemaStep == nil {
		return nil
	}
	if _, err := o.runStep(ctx, je, SchemaStepName, o.opts.SchemaStep); err != nil {
		logger.Errorf("Schema migration failed: %v", err)
		je.MarkAsFailed(err)
		o.endJob(ctx, je)
		return err
	}
	return nil
}

func (o *Orchestrator) endJob(ctx context.Context, je *model.JobExecution) {
	for _, l := range o.opts.JobListeners {
		l.AfterJob(ctx, je)
	}
	if err := o.opts.Repository.UpdateJobExecution(ctx, je); err != nil {
		logger.Errorf("Failed to store final state of job execution %s: %v", je.ID, err)
	}
}

// runTable runs the clean step and, when it succeeded, the import step. The returned
// error is set only when a step could not be tracked or ctx was cancelled.
func (o *Orchestrator) runTable(ctx context.Context, je *model.JobExecution, table config.TableConfig, single bool) (*TableJob, error) {
	job := NewTableJob(table, o.opts.OutputDir)
	start := time.Now()
	defer func() { job.Duration = time.Since(start) }()

	clean := NewCleanTasklet(job.Source, job.Cleaned, o.opts.Storage, o.opts.Decoder, o.opts.Rewriter, o.opts.Recorder, o.opts.Tracer)
	se, err := o.runStep(ctx, je, table.Name+".clean", clean)
	if se != nil {
		job.Encoding, _ = se.ExecutionContext.GetString(KeyEncoding)
		job.BytesIn = se.BytesRead
		job.BytesOut = se.BytesWritten
	}
	if err != nil {
		if isSetupFailure(err) {
			return job, err
		}
		job.fail(ReasonCleaningFailed, exception.ExtractErrorMessage(err), err)
		return job, nil
	}
	job.State = StateCleaned
	logger.Infof("Cleaned %s -> %s (%s).", job.Source, job.Cleaned, job.Encoding)

	imp := NewImportTasklet(job.Cleaned, o.opts.Storage, o.opts.Channel, o.opts.Recorder)
	se, err = o.runStep(ctx, je, table.Name+".import", imp)
	if se != nil {
		job.ExitCode, _ = se.ExecutionContext.GetInt(KeyExitCode)
	}
	if err != nil {
		if isSetupFailure(err) {
			return job, err
		}
		diagnostic := exception.ExtractErrorMessage(err)
		if se != nil {
			if stderr, ok := se.ExecutionContext.GetString(KeyStderr); ok && stderr != "" {
				diagnostic = stderr
			}
		}
		job.fail(ReasonExecutionFailed, diagnostic, err)
		return job, nil
	}
	job.State = StateImported
	logger.Infof("Imported %s.", job.Name())
	return job, nil
}

type setupError struct{ error }

func (e setupError) Unwrap() error { return e.error }

func isSetupFailure(err error) bool {
	var se setupError
	return errors.As(err, &se)
}

func (o *Orchestrator) runStep(ctx context.Context, je *model.JobExecution, name string, t port.Tasklet) (*model.StepExecution, error) {
	if err := ctx.Err(); err != nil {
		return nil, setupError{err}
	}
	se := model.NewStepExecution(je, name)
	if err := o.opts.Repository.SaveStepExecution(ctx, se); err != nil {
		return nil, setupError{exception.NewBatchError(moduleName, "cannot store step execution "+name, err, false, false)}
	}
	step := tasklet.NewTaskletStep(name, t, o.opts.Repository, o.opts.StepListeners, o.opts.Tracer)
	err := step.Execute(ctx, je, se)
	if err != nil && se.Status != model.BatchStatusFailed {
		// The tasklet did not run to a recorded outcome.
		return se, setupError{err}
	}
	if err != nil && ctx.Err() != nil {
		return se, setupError{errors.Join(err, ctx.Err())}
	}
	return se, err
}
