package verify_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/dumpshift/internal/channel"
	"github.com/tigerroll/dumpshift/internal/verify"
	"github.com/tigerroll/dumpshift/pkg/batch/core/config"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
)

type queryChannel struct {
	queries []string
	results []*channel.Result
	err     error
}

func (c *queryChannel) Name() string { return "fake" }

func (c *queryChannel) ExecScript(context.Context, io.Reader) (*channel.Result, error) {
	return nil, errors.New("not used")
}

func (c *queryChannel) Query(_ context.Context, q string) (*channel.Result, error) {
	c.queries = append(c.queries, q)
	if c.err != nil {
		return nil, c.err
	}
	res := c.results[0]
	if len(c.results) > 1 {
		c.results = c.results[1:]
	}
	if res.ExitCode != 0 {
		return res, exception.NewChannelExecutionError("channel", res.ExitCode, res.Stderr)
	}
	return res, nil
}

func (c *queryChannel) Close() error { return nil }

func TestBuildQuery(t *testing.T) {
	q := verify.BuildQuery([]verify.Target{
		{Label: "Usuario", Table: "usuario"},
		{Label: "Reseñas d'Ana", Table: "Resenas"},
		{Label: "Log", Table: "audit.log_2024"},
	})
	assert.Equal(t,
		"SELECT 'Usuario' AS table_name, COUNT(*) AS row_count FROM usuario"+
			" UNION ALL SELECT 'Reseñas d''Ana' AS table_name, COUNT(*) AS row_count FROM \"Resenas\""+
			" UNION ALL SELECT 'Log' AS table_name, COUNT(*) AS row_count FROM audit.log_2024;",
		q)
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "cita", verify.QuoteIdentifier("cita"))
	assert.Equal(t, `"user table"`, verify.QuoteIdentifier("user table"))
	assert.Equal(t, `"a""b"`, verify.QuoteIdentifier(`a"b`))
	assert.Equal(t, `"1st"`, verify.QuoteIdentifier("1st"))
}

func TestTargetsFor(t *testing.T) {
	manifest := []config.TableConfig{{Name: "usuario", Source: "u.sql"}, {Name: "servicio", Label: "Services", Source: "s.sql"}}

	assert.Equal(t, []verify.Target{{Label: "Usuario", Table: "usuario"}, {Label: "Services", Table: "servicio"}},
		verify.TargetsFor(nil, manifest))
	assert.Equal(t, []verify.Target{{Label: "Cita", Table: "cita"}},
		verify.TargetsFor([]config.TableConfig{{Name: "cita"}}, manifest))
	assert.Equal(t, verify.DefaultTargets, verify.TargetsFor(nil, nil))
}

func TestReporter_Run(t *testing.T) {
	ch := &queryChannel{results: []*channel.Result{{Stdout: " table_name | row_count\n Usuario | 2\n"}}}
	r := verify.NewReporter(ch, []verify.Target{{Label: "Usuario", Table: "usuario"}}, nil, nil)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.ExitCode)
	assert.Contains(t, report.Output, "Usuario | 2")
	require.Len(t, ch.queries, 1)
	assert.Equal(t, report.Query, ch.queries[0])
}

func TestReporter_RetriesChannelFailures(t *testing.T) {
	ch := &queryChannel{results: []*channel.Result{
		{ExitCode: 2, Stderr: "could not connect"},
		{Stdout: "ok"},
	}}
	policy := verify.NewRetryPolicy(config.RetryConfig{MaxAttempts: 2, InitialIntervalMs: 1})
	r := verify.NewReporter(ch, verify.DefaultTargets, policy, nil)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", report.Output)
	assert.Len(t, ch.queries, 2)
}

func TestReporter_ReportsNonZeroExit(t *testing.T) {
	ch := &queryChannel{results: []*channel.Result{{ExitCode: 1, Stderr: `relation "cita" does not exist`}}}
	r := verify.NewReporter(ch, verify.DefaultTargets, nil, nil)

	report, err := r.Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 1, report.ExitCode)
	assert.Contains(t, report.Stderr, "cita")
	assert.True(t, errors.Is(err, exception.ErrChannelExecution))
}

func TestReporter_ChannelUnavailable(t *testing.T) {
	ch := &queryChannel{err: errors.New("exec: docker: not found")}
	r := verify.NewReporter(ch, verify.DefaultTargets, nil, nil)

	report, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)
}
