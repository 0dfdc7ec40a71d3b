package orchestrator

import (
	"bytes"
	"context"
	"time"

	"github.com/tigerroll/dumpshift/internal/channel"
	"github.com/tigerroll/dumpshift/internal/dialect"
	"github.com/tigerroll/dumpshift/internal/encoding"
	port "github.com/tigerroll/dumpshift/pkg/batch/core/application/port"
	model "github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
	"github.com/tigerroll/dumpshift/pkg/batch/core/metrics"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

// ExecutionContext keys written by the tasklets.
const (
	KeyEncoding = "encoding"
	KeyCleaned  = "cleaned"
	KeyMatches  = "rule_matches"
	KeyExitCode = "exit_code"
	KeyStdout   = "stdout"
	KeyStderr   = "stderr"
)

// Storage reads and writes dump references.
type Storage interface {
	ReadAll(ctx context.Context, ref string) ([]byte, error)
	Write(ctx context.Context, ref string, data []byte) error
}

type baseTasklet struct {
	ec model.ExecutionContext
}

func (t *baseTasklet) Close(ctx context.Context) error {
	return nil
}

func (t *baseTasklet) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	t.ec = ec
	return nil
}

func (t *baseTasklet) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return t.ec, nil
}

// CleanTasklet reads a dump, decodes it, rewrites it and writes the cleaned artifact.
type CleanTasklet struct {
	baseTasklet
	source   string
	cleaned  string
	storage  Storage
	decoder  *encoding.Resolver
	rewriter *dialect.Rewriter
	recorder metrics.MetricRecorder
	tracer   metrics.Tracer
}

// NewCleanTasklet creates a CleanTasklet for one source reference.
func NewCleanTasklet(source, cleaned string, storage Storage, decoder *encoding.Resolver, rewriter *dialect.Rewriter, recorder metrics.MetricRecorder, tracer metrics.Tracer) *CleanTasklet {
	return &CleanTasklet{
		source:   source,
		cleaned:  cleaned,
		storage:  storage,
		decoder:  decoder,
		rewriter: rewriter,
		recorder: recorder,
		tracer:   tracer,
	}
}

// Execute implements port.Tasklet.
func (t *CleanTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	raw, err := t.storage.ReadAll(ctx, t.source)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	stepExecution.BytesRead = len(raw)
	t.recorder.RecordBytes(ctx, "read", len(raw))

	doc, err := t.decoder.Decode(t.source, raw)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	t.ec.Put(KeyEncoding, doc.Encoding)
	t.recorder.RecordBytes(ctx, "decoded", len(doc.Text))
	t.tracer.RecordEvent(ctx, "decoded", map[string]interface{}{"encoding": doc.Encoding, "bytes": doc.RawLength})

	text, stats := t.rewriter.RewriteWithStats(doc.Text)
	matches := make(map[string]interface{}, len(stats))
	for _, id := range t.rewriter.RuleIDs() {
		t.recorder.RecordRuleMatches(ctx, id, stats[id])
		matches[id] = stats[id]
	}
	t.ec.Put(KeyMatches, stats.Total())
	t.tracer.RecordEvent(ctx, "rewritten", matches)
	logger.Debugf("%s: %d rewrite matches (%s).", t.source, stats.Total(), doc.Encoding)

	if err := t.storage.Write(ctx, t.cleaned, []byte(text)); err != nil {
		return model.ExitStatusFailed, err
	}
	stepExecution.BytesWritten = len(text)
	t.recorder.RecordBytes(ctx, "rewritten", len(text))
	t.ec.Put(KeyCleaned, t.cleaned)
	return model.ExitStatusCompleted, nil
}

// ImportTasklet sends a cleaned artifact to the execution channel.
type ImportTasklet struct {
	baseTasklet
	cleaned  string
	storage  Storage
	channel  channel.Channel
	recorder metrics.MetricRecorder
}

// NewImportTasklet creates an ImportTasklet for one cleaned artifact.
func NewImportTasklet(cleaned string, storage Storage, ch channel.Channel, recorder metrics.MetricRecorder) *ImportTasklet {
	return &ImportTasklet{cleaned: cleaned, storage: storage, channel: ch, recorder: recorder}
}

// Execute implements port.Tasklet. The channel's output and exit code are kept in the
// ExecutionContext whether or not the import succeeded.
func (t *ImportTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	script, err := t.storage.ReadAll(ctx, t.cleaned)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	stepExecution.BytesRead = len(script)

	start := time.Now()
	res, err := t.channel.ExecScript(ctx, bytes.NewReader(script))
	t.recorder.RecordDuration(ctx, "import", time.Since(start), map[string]string{"channel": t.channel.Name()})
	if res != nil {
		t.ec.Put(KeyExitCode, res.ExitCode)
		t.ec.Put(KeyStdout, res.Stdout)
		t.ec.Put(KeyStderr, res.Stderr)
	}
	if err != nil {
		return model.ExitStatusFailed, err
	}
	t.recorder.RecordBytes(ctx, "imported", len(script))
	return model.ExitStatusCompleted, nil
}

var (
	_ port.Tasklet = (*CleanTasklet)(nil)
	_ port.Tasklet = (*ImportTasklet)(nil)
)
