package main

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tigerroll/dumpshift/internal/orchestrator"
	"github.com/tigerroll/dumpshift/internal/report"
	"github.com/tigerroll/dumpshift/pkg/batch/core/config"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
)

func newImportTablesCommand(root *rootOptions) *cobra.Command {
	var failOnError bool
	cmd := &cobra.Command{
		Use:   "import-tables",
		Short: "Clean and import every table of migration.tables, then verify",
		Long: `import-tables processes the manifest one table at a time. A failing table is
reported and the next one starts; the command still exits 0 unless --fail-on-error
is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			tables := cfg.Dumpshift.Migration.Tables
			if len(tables) == 0 {
				return exception.NewBatchErrorf("import-tables", "migration.tables is empty")
			}

			var (
				orch     *orchestrator.Orchestrator
				exporter *report.ParquetExporter
			)
			return runWithApp(cmd.Context(), cfg, func(ctx context.Context) error {
				return importTables(ctx, cfg, orch, exporter, tables, failOnError)
			}, &orch, &exporter)
		},
	}
	cmd.Flags().BoolVar(&failOnError, "fail-on-error", false, "exit 1 when any table failed")
	return cmd
}

func importTables(ctx context.Context, cfg *config.Config, orch *orchestrator.Orchestrator, exporter *report.ParquetExporter, tables []config.TableConfig, failOnError bool) error {
	rep, runErr := orch.Run(ctx, tables)
	if rep == nil {
		return failStage("Batch", runErr)
	}

	for _, j := range rep.Jobs {
		switch j.State {
		case orchestrator.StateImported:
			pterm.Success.Printf("%s imported\n", j.Name())
		case orchestrator.StateFailed:
			pterm.Error.Printf("%s: %s\n", j.Name(), j.Outcome())
		}
	}
	summary, err := report.Summary(rep)
	if err != nil {
		return err
	}
	pterm.Println(summary)

	if path := cfg.Dumpshift.Report.ParquetPath; path != "" {
		if err := exporter.Export(ctx, path, rep); err != nil {
			pterm.Warning.Printf("Report not written: %v\n", err)
		} else {
			pterm.Success.Printf("Report written to %s\n", path)
		}
	}

	if runErr != nil {
		return failStage("Batch", runErr)
	}
	if err := rep.Err(); err != nil && failOnError {
		return reportedError{err}
	}
	return nil
}
