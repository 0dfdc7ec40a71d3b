package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	model "github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/dumpshift/pkg/batch/core/metrics"
	logger "github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
// A dumpshift run is short-lived, so the registry is not scraped; it is written to a
// node_exporter textfile when the application stops.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	// Job Metrics
	jobDurationSeconds *prometheus.HistogramVec
	jobStatusCounter   *prometheus.CounterVec

	// Step Metrics
	stepDurationSeconds *prometheus.HistogramVec
	stepStatusCounter   *prometheus.CounterVec
	stepBytesCounter    *prometheus.CounterVec

	// Migration Metrics
	tableOutcomeCounter *prometheus.CounterVec
	bytesCounter        *prometheus.CounterVec
	ruleMatchCounter    *prometheus.CounterVec
	operationDuration   *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		jobDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dumpshift_job_duration_seconds",
			Help:    "Duration of dumpshift batch executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_name", "status", "exit_status"}),
		jobStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dumpshift_job_status_total",
			Help: "Total number of batch executions by final status.",
		}, []string{"job_name", "status"}),
		stepDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dumpshift_step_duration_seconds",
			Help:    "Duration of table phases (clean, import).",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_name", "step_name", "status", "exit_status"}),
		stepStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dumpshift_step_status_total",
			Help: "Total number of table phases by final status.",
		}, []string{"job_name", "step_name", "status"}),
		stepBytesCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dumpshift_step_bytes_total",
			Help: "Bytes read and written by table phases.",
		}, []string{"job_name", "step_name", "direction"}),
		tableOutcomeCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dumpshift_tables_total",
			Help: "Table jobs by outcome.",
		}, []string{"table", "outcome"}),
		bytesCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dumpshift_bytes_total",
			Help: "Bytes passing through each pipeline stage.",
		}, []string{"stage"}),
		ruleMatchCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dumpshift_rule_matches_total",
			Help: "Text spans rewritten by each dialect rule.",
		}, []string{"rule"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dumpshift_operation_duration_seconds",
			Help:    "Duration of individual operations such as channel executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "channel"}),
	}

	registry.MustRegister(
		r.jobDurationSeconds,
		r.jobStatusCounter,
		r.stepDurationSeconds,
		r.stepStatusCounter,
		r.stepBytesCounter,
		r.tableOutcomeCounter,
		r.bytesCounter,
		r.ruleMatchCounter,
		r.operationDuration,
	)

	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes every registered metric to path in the text exposition format.
func (r *PrometheusRecorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// RecordJobStart records the start of a JobExecution.
func (r *PrometheusRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {
	logger.Debugf("Metrics: Job '%s' started.", execution.JobName)
}

// RecordJobEnd records the end of a JobExecution.
func (r *PrometheusRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	if execution.EndTime == nil {
		return
	}
	duration := execution.EndTime.Sub(execution.StartTime).Seconds()

	r.jobDurationSeconds.WithLabelValues(
		execution.JobName,
		execution.Status.String(),
		execution.ExitStatus.String(),
	).Observe(duration)
	r.jobStatusCounter.WithLabelValues(execution.JobName, execution.Status.String()).Inc()

	logger.Debugf("Metrics: Job '%s' ended. Duration: %.3fs", execution.JobName, duration)
}

// RecordStepStart records the start of a StepExecution.
func (r *PrometheusRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {
	logger.Debugf("Metrics: Step '%s' started.", execution.StepName)
}

// RecordStepEnd records the end of a StepExecution.
func (r *PrometheusRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	if execution.EndTime == nil {
		return
	}
	duration := execution.EndTime.Sub(execution.StartTime).Seconds()
	jobName := jobNameOf(execution)

	r.stepDurationSeconds.WithLabelValues(
		jobName,
		execution.StepName,
		execution.Status.String(),
		execution.ExitStatus.String(),
	).Observe(duration)
	r.stepStatusCounter.WithLabelValues(jobName, execution.StepName, execution.Status.String()).Inc()
	r.stepBytesCounter.WithLabelValues(jobName, execution.StepName, "read").Add(float64(execution.BytesRead))
	r.stepBytesCounter.WithLabelValues(jobName, execution.StepName, "written").Add(float64(execution.BytesWritten))

	logger.Debugf("Metrics: Step '%s' ended. Duration: %.3fs", execution.StepName, duration)
}

// RecordTableOutcome counts a finished table job.
func (r *PrometheusRecorder) RecordTableOutcome(ctx context.Context, table string, outcome string) {
	r.tableOutcomeCounter.WithLabelValues(table, outcome).Inc()
}

// RecordBytes adds n bytes to a pipeline stage.
func (r *PrometheusRecorder) RecordBytes(ctx context.Context, stage string, n int) {
	if n <= 0 {
		return
	}
	r.bytesCounter.WithLabelValues(stage).Add(float64(n))
}

// RecordRuleMatches adds the matches made by a rewrite rule.
func (r *PrometheusRecorder) RecordRuleMatches(ctx context.Context, rule string, count int) {
	if count <= 0 {
		return
	}
	r.ruleMatchCounter.WithLabelValues(rule).Add(float64(count))
}

// RecordDuration records the execution time of an operation. Only the "channel" tag is kept as a label.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.operationDuration.WithLabelValues(name, tags["channel"]).Observe(duration.Seconds())
}

func jobNameOf(execution *model.StepExecution) string {
	if execution.JobExecution == nil {
		return ""
	}
	return execution.JobExecution.JobName
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
