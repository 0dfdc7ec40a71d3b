package main

import (
	"context"
	"path"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tigerroll/dumpshift/internal/dialect"
	"github.com/tigerroll/dumpshift/internal/orchestrator"
	"github.com/tigerroll/dumpshift/internal/verify"
	"github.com/tigerroll/dumpshift/pkg/batch/core/config"
)

func newMigrateCommand(root *rootOptions) *cobra.Command {
	var (
		cleaned  string
		preset   string
		noVerify bool
	)
	cmd := &cobra.Command{
		Use:   "migrate <in>",
		Short: "Clean one data dump, import it and print the row counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			var rw *dialect.Rewriter
			if preset != "" {
				if rw, err = dialect.ForConfig(preset, nil); err != nil {
					return err
				}
			}
			table := config.TableConfig{Name: dumpName(args[0]), Source: args[0], Cleaned: cleaned}
			skipVerify := noVerify || cfg.Dumpshift.Verification.Disabled

			var (
				orch     *orchestrator.Orchestrator
				reporter *verify.Reporter
			)
			return runWithApp(cmd.Context(), cfg, func(ctx context.Context) error {
				if rw != nil {
					orch = orch.WithRewriter(rw)
				}
				if err := migrateOne(ctx, orch, table); err != nil {
					return err
				}
				if skipVerify {
					pterm.Info.Println("Verification skipped.")
					return nil
				}
				return printVerification(ctx, reporter, false)
			}, &orch, &reporter)
		},
	}
	cmd.Flags().StringVar(&cleaned, "cleaned", "", "where the cleaned file is written (default <name>_clean.sql)")
	cmd.Flags().StringVar(&preset, "preset", "", "rewrite preset (defaults to migration.preset)")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "skip the row count report")
	return cmd
}

// dumpName derives a table name from a dump reference: "dumps/usuario_data.sql" -> "usuario_data".
func dumpName(ref string) string {
	base := path.Base(strings.ReplaceAll(ref, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

func migrateOne(ctx context.Context, orch *orchestrator.Orchestrator, table config.TableConfig) error {
	job, err := orch.RunSingle(ctx, table)
	if err != nil {
		stage := "Migration"
		if job != nil {
			switch job.Reason {
			case orchestrator.ReasonCleaningFailed:
				stage = "Cleaning"
			case orchestrator.ReasonExecutionFailed:
				stage = "Import"
			}
			if job.Diagnostic != "" && job.Reason == orchestrator.ReasonExecutionFailed {
				pterm.Error.Printf("%s failed (exit %d):\n%s\n", stage, job.ExitCode, job.Diagnostic)
				return reportedError{err}
			}
		}
		return failStage(stage, err)
	}
	pterm.Success.Printf("Cleaned %s -> %s (%s, %d -> %d bytes)\n", job.Source, job.Cleaned, job.Encoding, job.BytesIn, job.BytesOut)
	pterm.Success.Printf("Imported %s\n", job.Name())
	return nil
}
