package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/dumpshift/internal/orchestrator"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

const moduleName = "report"

// TableRow is the Parquet record written for each table of a batch.
type TableRow struct {
	JobID      string `parquet:"name=job_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Table      string `parquet:"name=table, type=BYTE_ARRAY, convertedtype=UTF8"`
	Source     string `parquet:"name=source, type=BYTE_ARRAY, convertedtype=UTF8"`
	Cleaned    string `parquet:"name=cleaned, type=BYTE_ARRAY, convertedtype=UTF8"`
	Outcome    string `parquet:"name=outcome, type=BYTE_ARRAY, convertedtype=UTF8"`
	Encoding   string `parquet:"name=encoding, type=BYTE_ARRAY, convertedtype=UTF8"`
	BytesIn    int64  `parquet:"name=bytes_in, type=INT64"`
	BytesOut   int64  `parquet:"name=bytes_out, type=INT64"`
	ExitCode   int32  `parquet:"name=exit_code, type=INT32"`
	DurationMs int64  `parquet:"name=duration_ms, type=INT64"`
	Diagnostic string `parquet:"name=diagnostic, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// Rows converts a batch report into Parquet records.
func Rows(r *orchestrator.BatchReport) []TableRow {
	var jobID string
	if r.JobExecution != nil {
		jobID = r.JobExecution.ID
	}
	rows := make([]TableRow, 0, len(r.Jobs))
	for _, j := range r.Jobs {
		rows = append(rows, TableRow{
			JobID:      jobID,
			Table:      j.Name(),
			Source:     j.Source,
			Cleaned:    j.Cleaned,
			Outcome:    j.Outcome().String(),
			Encoding:   j.Encoding,
			BytesIn:    int64(j.BytesIn),
			BytesOut:   int64(j.BytesOut),
			ExitCode:   int32(j.ExitCode),
			DurationMs: j.Duration.Milliseconds(),
			Diagnostic: j.Diagnostic,
		})
	}
	return rows
}

// Storage is where the Parquet file is written.
type Storage interface {
	Write(ctx context.Context, ref string, data []byte) error
}

// ParquetExporter writes batch reports as a single-row-group Parquet file.
type ParquetExporter struct {
	storage     Storage
	compression parquet.CompressionCodec
}

// NewParquetExporter creates an exporter. compression is "SNAPPY" (the default), "GZIP" or "NONE".
func NewParquetExporter(storage Storage, compression string) (*ParquetExporter, error) {
	codec, err := compressionCodec(compression)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("invalid compression type %q", compression), err, false, false)
	}
	return &ParquetExporter{storage: storage, compression: codec}, nil
}

// Encode serializes rows into Parquet.
func (e *ParquetExporter) Encode(rows []TableRow) (data []byte, err error) {
	buf := new(bytes.Buffer)
	groupSize := int64(len(rows))
	if groupSize == 0 {
		groupSize = 1
	}
	pw, err := writer.NewParquetWriterFromWriter(buf, new(TableRow), groupSize)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to create Parquet writer", err, false, false)
	}
	pw.CompressionType = e.compression

	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to write Parquet record for "+row.Table, err, false, false)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			err = exception.NewBatchError(moduleName, fmt.Sprintf("Parquet writer panicked during WriteStop: %v", r), nil, false, false)
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to finalize Parquet file", err, false, false)
	}
	return buf.Bytes(), nil
}

// Export encodes the rows of r and writes them to ref.
func (e *ParquetExporter) Export(ctx context.Context, ref string, r *orchestrator.BatchReport) error {
	rows := Rows(r)
	data, err := e.Encode(rows)
	if err != nil {
		return err
	}
	logger.Debugf("Writing %d report rows (%d bytes) to %s.", len(rows), len(data), ref)
	if err := e.storage.Write(ctx, ref, data); err != nil {
		return err
	}
	logger.Infof("Batch report written to %s.", ref)
	return nil
}

func compressionCodec(name string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(name) {
	case "", "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "UNCOMPRESSED":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return parquet.CompressionCodec_UNCOMPRESSED, fmt.Errorf("unsupported compression type: %s", name)
	}
}
