// Package verify builds and runs the post-import row count report.
package verify

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tigerroll/dumpshift/internal/channel"
	"github.com/tigerroll/dumpshift/pkg/batch/core/config"
	"github.com/tigerroll/dumpshift/pkg/batch/core/metrics"
	"github.com/tigerroll/dumpshift/pkg/batch/engine/step/retry"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

const moduleName = "verify"

var plainIdentifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Target is one row of the report: Label is shown, Table is counted.
type Target struct {
	Label string
	Table string
}

// DefaultTargets is used when neither the verification list nor the manifest names a table.
var DefaultTargets = []Target{
	{Label: "Usuario", Table: "usuario"},
	{Label: "Servicio", Table: "servicio"},
	{Label: "Cita", Table: "cita"},
	{Label: "Resenas", Table: "resenas"},
	{Label: "Portfolio", Table: "portfolio"},
}

// TargetsFor picks the verification list, then the manifest, then DefaultTargets.
func TargetsFor(verification, manifest []config.TableConfig) []Target {
	tables := verification
	if len(tables) == 0 {
		tables = manifest
	}
	if len(tables) == 0 {
		return append([]Target(nil), DefaultTargets...)
	}
	targets := make([]Target, 0, len(tables))
	for _, t := range tables {
		targets = append(targets, Target{Label: t.DisplayLabel(), Table: t.Name})
	}
	return targets
}

// QuoteIdentifier leaves lower-case plain names bare and double-quotes the rest.
// Dotted names are quoted part by part.
func QuoteIdentifier(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if !plainIdentifier.MatchString(p) {
			parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
		}
	}
	return strings.Join(parts, ".")
}

// QuoteLiteral renders s as a SQL string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// BuildQuery returns one UNION ALL query counting the rows of every target.
func BuildQuery(targets []Target) string {
	selects := make([]string, len(targets))
	for i, t := range targets {
		selects[i] = fmt.Sprintf("SELECT %s AS table_name, COUNT(*) AS row_count FROM %s",
			QuoteLiteral(t.Label), QuoteIdentifier(t.Table))
	}
	return strings.Join(selects, " UNION ALL ") + ";"
}

// Report is the raw outcome of the verification query. Counts are not interpreted.
type Report struct {
	Query    string
	ExitCode int
	Output   string
	Stderr   string
	Duration time.Duration
}

// Reporter runs the verification query over a channel.
type Reporter struct {
	channel  channel.Channel
	targets  []Target
	policy   retry.RetryPolicy
	recorder metrics.MetricRecorder
}

// NewReporter creates a Reporter. A nil policy runs the query once; a nil recorder records nothing.
func NewReporter(ch channel.Channel, targets []Target, policy retry.RetryPolicy, recorder metrics.MetricRecorder) *Reporter {
	if policy == nil {
		policy = retry.NewRetryPolicy(1, 0, nil)
	}
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	return &Reporter{channel: ch, targets: targets, policy: policy, recorder: recorder}
}

// NewRetryPolicy retries failed verification queries as configured.
func NewRetryPolicy(cfg config.RetryConfig) retry.RetryPolicy {
	return retry.NewRetryPolicy(cfg.MaxAttempts, cfg.InitialInterval(), []string{exception.ChannelExecutionFailure})
}

// Targets returns the tables counted by the report.
func (r *Reporter) Targets() []Target {
	return r.targets
}

// Run sends the query. When the channel ran but reported a failure, both the Report and
// an error wrapping exception.ErrChannelExecution are returned.
func (r *Reporter) Run(ctx context.Context) (*Report, error) {
	report := &Report{Query: BuildQuery(r.targets)}
	if len(r.targets) == 0 {
		return nil, exception.NewBatchErrorf(moduleName, "no tables to verify")
	}
	logger.Infof("Verifying %d table(s) through the %s channel.", len(r.targets), r.channel.Name())
	logger.Debugf("Verification query: %s", report.Query)

	start := time.Now()
	err := retry.Do(ctx, "verification query", r.policy, func(ctx context.Context) error {
		res, err := r.channel.Query(ctx, report.Query)
		if res != nil {
			report.ExitCode = res.ExitCode
			report.Output = res.Stdout
			report.Stderr = res.Stderr
		}
		return err
	})
	report.Duration = time.Since(start)
	r.recorder.RecordDuration(ctx, "verification", report.Duration, map[string]string{"channel": r.channel.Name()})

	if err != nil {
		if exception.IsErrorOfType(err, exception.ChannelExecutionFailure) {
			return report, err
		}
		return nil, err
	}
	return report, nil
}
