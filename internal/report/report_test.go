package report_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/tigerroll/dumpshift/internal/orchestrator"
	"github.com/tigerroll/dumpshift/internal/report"
	"github.com/tigerroll/dumpshift/internal/verify"
	"github.com/tigerroll/dumpshift/pkg/batch/core/config"
	model "github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
)

type fileStorage struct {
	dir string
}

func (s fileStorage) Write(_ context.Context, ref string, data []byte) error {
	return os.WriteFile(filepath.Join(s.dir, ref), data, 0o644)
}

func sampleReport() *orchestrator.BatchReport {
	ok := orchestrator.NewTableJob(config.TableConfig{Name: "usuario", Source: "usuario_data.sql"}, "out")
	ok.State = orchestrator.StateImported
	ok.Encoding = "latin-1"
	ok.BytesIn, ok.BytesOut = 120, 98
	ok.Duration = 1500 * time.Millisecond

	bad := orchestrator.NewTableJob(config.TableConfig{Name: "servicio", Source: "servicio_data.sql"}, "out")
	bad.State = orchestrator.StateFailed
	bad.Reason = orchestrator.ReasonExecutionFailed
	bad.ExitCode = 3
	bad.Diagnostic = "ERROR:  relation \"servicio\" does not exist\nLINE 1: INSERT INTO \"servicio\""
	bad.Err = errors.New("exit 3")

	return &orchestrator.BatchReport{
		JobExecution:    model.NewJobExecution(orchestrator.BatchJobName, model.NewJobParameters()),
		Jobs:            []*orchestrator.TableJob{ok, bad},
		VerificationRan: true,
		Verification:    &verify.Report{Output: " tabla   | total\n Usuario |     2\n"},
	}
}

func TestSummary(t *testing.T) {
	out, err := report.Summary(sampleReport())
	require.NoError(t, err)

	assert.Contains(t, out, "usuario")
	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, "execution_failed")
	assert.Contains(t, out, `relation "servicio" does not exist`)
	assert.NotContains(t, out, "LINE 1")
	assert.Contains(t, out, "1 succeeded, 1 failed, 2 total")
	assert.Contains(t, out, "Usuario |     2")
}

func TestSummary_VerificationStates(t *testing.T) {
	r := sampleReport()
	r.VerificationRan = false
	out, err := report.Summary(r)
	require.NoError(t, err)
	assert.Contains(t, out, "Verification skipped.")

	r.VerificationRan = true
	r.Verification = &verify.Report{ExitCode: 2, Stderr: "psql: could not connect\n"}
	r.VerificationErr = errors.New("exit 2")
	out, err = report.Summary(r)
	require.NoError(t, err)
	assert.Contains(t, out, "Verification failed: exit 2")
	assert.Contains(t, out, "psql: could not connect")
}

func TestRows(t *testing.T) {
	r := sampleReport()
	rows := report.Rows(r)
	require.Len(t, rows, 2)

	assert.Equal(t, r.JobExecution.ID, rows[0].JobID)
	assert.Equal(t, "out/usuario_clean.sql", rows[0].Cleaned)
	assert.Equal(t, int64(1500), rows[0].DurationMs)
	assert.Equal(t, "execution_failed", rows[1].Outcome)
	assert.Equal(t, int32(3), rows[1].ExitCode)
}

func TestParquetExporter_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	exp, err := report.NewParquetExporter(fileStorage{dir: dir}, "")
	require.NoError(t, err)
	require.NoError(t, exp.Export(context.Background(), "batch.parquet", sampleReport()))

	fr, err := local.NewLocalFileReader(filepath.Join(dir, "batch.parquet"))
	require.NoError(t, err)
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, new(report.TableRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	require.Equal(t, int64(2), pr.GetNumRows())
	rows := make([]report.TableRow, 2)
	require.NoError(t, pr.Read(&rows))
	assert.Equal(t, "usuario", rows[0].Table)
	assert.Equal(t, int64(120), rows[0].BytesIn)
	assert.Equal(t, "servicio", rows[1].Table)
}

func TestParquetExporter_Compression(t *testing.T) {
	for _, c := range []string{"snappy", "GZIP", "none"} {
		exp, err := report.NewParquetExporter(fileStorage{dir: t.TempDir()}, c)
		require.NoError(t, err, c)
		data, err := exp.Encode(report.Rows(sampleReport()))
		require.NoError(t, err, c)
		assert.Equal(t, "PAR1", string(data[:4]), c)
	}

	_, err := report.NewParquetExporter(fileStorage{}, "lz4")
	assert.Error(t, err)
}
