package metrics_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	config "github.com/tigerroll/dumpshift/pkg/batch/core/config"
	"github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
	coremetrics "github.com/tigerroll/dumpshift/pkg/batch/core/metrics"
	metrics "github.com/tigerroll/dumpshift/pkg/batch/infrastructure/metrics"
)

func finishedStep(t *testing.T) *model.StepExecution {
	t.Helper()
	je := model.NewJobExecution("import-tables", model.NewJobParameters())
	se := model.NewStepExecution(je, "usuario.clean")
	se.MarkAsStarted()
	se.BytesRead = 100
	se.BytesWritten = 60
	se.MarkAsCompleted(model.ExitStatusCompleted)
	return se
}

func TestPrometheusRecorder_Textfile(t *testing.T) {
	ctx := context.Background()
	rec := metrics.NewPrometheusRecorder()

	rec.RecordTableOutcome(ctx, "usuario", "succeeded")
	rec.RecordTableOutcome(ctx, "servicio", "execution_failed")
	rec.RecordBytes(ctx, "rewritten", 512)
	rec.RecordBytes(ctx, "rewritten", 0)
	rec.RecordRuleMatches(ctx, "backtick-identifiers", 7)
	rec.RecordStepEnd(ctx, finishedStep(t))
	rec.RecordDuration(ctx, "exec_script", 20*time.Millisecond, map[string]string{"channel": "shell"})

	n, err := testutil.GatherAndCount(rec.GetRegistry(), "dumpshift_tables_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	path := filepath.Join(t.TempDir(), "dumpshift.prom")
	require.NoError(t, rec.WriteTextfile(path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)

	assert.Contains(t, text, `dumpshift_tables_total{outcome="succeeded",table="usuario"} 1`)
	assert.Contains(t, text, `dumpshift_bytes_total{stage="rewritten"} 512`)
	assert.Contains(t, text, `dumpshift_rule_matches_total{rule="backtick-identifiers"} 7`)
	assert.Contains(t, text, `dumpshift_step_bytes_total{direction="written",job_name="import-tables",step_name="usuario.clean"} 60`)
}

func TestOTelRecorder_Counters(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(ctx)

	rec, err := metrics.NewOTelRecorder(mp.Meter("test"))
	require.NoError(t, err)

	rec.RecordTableOutcome(ctx, "usuario", "succeeded")
	rec.RecordTableOutcome(ctx, "usuario", "succeeded")
	rec.RecordStepEnd(ctx, finishedStep(t))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.NotEmpty(t, rm.ScopeMetrics)

	var tables *metricdata.Metrics
	for i, m := range rm.ScopeMetrics[0].Metrics {
		if m.Name == "dumpshift.tables" {
			tables = &rm.ScopeMetrics[0].Metrics[i]
		}
	}
	require.NotNil(t, tables)
	sum, ok := tables.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
}

func TestOpenTelemetryTracer_Spans(t *testing.T) {
	ctx := context.Background()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tracer := metrics.NewOpenTelemetryTracer(tp.Tracer("test"))

	je := model.NewJobExecution("import-tables", model.NewJobParameters())
	jobCtx, endJob := tracer.StartJobSpan(ctx, je)

	se := model.NewStepExecution(je, "servicio.import")
	stepCtx, endStep := tracer.StartStepSpan(jobCtx, se)
	tracer.RecordEvent(stepCtx, "decoded", map[string]interface{}{"encoding": "latin-1", "bytes": 42})
	tracer.RecordError(stepCtx, "channel", errors.New("psql exited with status 3"))
	se.MarkAsStarted()
	se.MarkAsFailed(errors.New("psql exited with status 3"))
	endStep()

	je.MarkAsStarted()
	je.MarkAsCompleted(model.ExitStatusCompletedWithFailures)
	endJob()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	step, job := spans[0], spans[1]

	assert.Equal(t, "step servicio.import", step.Name())
	assert.Equal(t, codes.Error, step.Status().Code)
	assert.Equal(t, job.SpanContext().SpanID(), step.Parent().SpanID())

	var names []string
	for _, ev := range step.Events() {
		names = append(names, ev.Name)
	}
	assert.Contains(t, names, "decoded")
	assert.Contains(t, names, "exception")

	assert.Equal(t, "job import-tables", job.Name())
	assert.Equal(t, codes.Error, job.Status().Code)
}

func TestTelemetry_Disabled(t *testing.T) {
	cfg := config.NewConfig()
	tel, err := metrics.NewTelemetry(context.Background(), cfg.Dumpshift.Tracing, cfg.Dumpshift.Metrics)
	require.NoError(t, err)

	assert.Nil(t, tel.TracerProvider)
	assert.Nil(t, tel.MeterProvider)
	assert.IsType(t, &coremetrics.NoOpTracer{}, tel.Tracer())

	rec, err := tel.Recorder()
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestTelemetry_UnknownExporter(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Dumpshift.Tracing.Enabled = true
	cfg.Dumpshift.Tracing.Exporter = "zipkin"

	_, err := metrics.NewTelemetry(context.Background(), cfg.Dumpshift.Tracing, cfg.Dumpshift.Metrics)
	assert.ErrorContains(t, err, `unknown tracing exporter "zipkin"`)
}
