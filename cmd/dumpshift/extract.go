package main

import (
	"bytes"
	"context"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tigerroll/dumpshift/internal/dialect"
	"github.com/tigerroll/dumpshift/internal/encoding"
	"github.com/tigerroll/dumpshift/internal/extract"
	"github.com/tigerroll/dumpshift/pkg/batch/adapter/storage"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
)

func newExtractCommand(root *rootOptions) *cobra.Command {
	var keyword, preset string
	cmd := &cobra.Command{
		Use:   "extract <in> <out>",
		Short: "Extract the INSERT statements of a dump into a separate file",
		Long: `Extract decodes the dump, rewrites it and keeps only the statements starting
with the keyword followed by a double-quoted table name. Without --preset only
backtick identifiers are rewritten.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if keyword == "" {
				keyword = cfg.Dumpshift.Migration.Keyword
			}
			ex, err := extract.NewExtractor(keyword)
			if err != nil {
				return err
			}
			var rw *dialect.Rewriter
			if preset != "" {
				rw, err = dialect.ForConfig(preset, nil)
			} else {
				rw, err = dialect.NewRewriter(dialect.RuleBacktickIdentifiers)
			}
			if err != nil {
				return err
			}

			var (
				res *storage.Resolver
				dec *encoding.Resolver
			)
			return runWithApp(cmd.Context(), cfg, func(ctx context.Context) error {
				return extractStatements(ctx, res, dec, rw, ex, args[0], args[1])
			}, &res, &dec)
		},
	}
	cmd.Flags().StringVar(&keyword, "keyword", "", "statement keyword (defaults to migration.keyword)")
	cmd.Flags().StringVar(&preset, "preset", "", "rewrite preset applied before extraction")
	return cmd
}

func extractStatements(ctx context.Context, res *storage.Resolver, dec *encoding.Resolver, rw *dialect.Rewriter, ex *extract.Extractor, in, out string) error {
	doc, err := readDocument(ctx, res, dec, in)
	if err != nil {
		return err
	}

	result := ex.Extract(rw.Rewrite(doc.Text))
	if !result.Found() {
		pterm.Warning.Printf("%s: no %s statements in %s\n", exception.NoStatementsFound, ex.Keyword(), in)
		return nil
	}
	pterm.Success.Printf("Found %d %s statements (%s)\n", len(result.Statements), ex.Keyword(), strings.Join(result.Tables(), ", "))

	var buf bytes.Buffer
	if err := extract.WriteStatements(&buf, result, extract.DefaultHeader); err != nil {
		return failStage("Write", err)
	}
	if err := res.Write(ctx, out, buf.Bytes()); err != nil {
		return failStage("Write", err)
	}
	pterm.Success.Printf("Wrote %s\n", out)
	return nil
}
