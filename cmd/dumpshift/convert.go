package main

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tigerroll/dumpshift/internal/dialect"
	"github.com/tigerroll/dumpshift/internal/encoding"
	"github.com/tigerroll/dumpshift/pkg/batch/adapter/storage"
)

func newConvertCommand(root *rootOptions) *cobra.Command {
	var preset string
	cmd := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Convert a full MySQL dump (schema and data) to PostgreSQL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			rw, err := dialect.ForConfig(preset, nil)
			if err != nil {
				return err
			}
			var (
				res *storage.Resolver
				dec *encoding.Resolver
			)
			return runWithApp(cmd.Context(), cfg, func(ctx context.Context) error {
				return convert(ctx, res, dec, rw, args[0], args[1])
			}, &res, &dec)
		},
	}
	cmd.Flags().StringVar(&preset, "preset", string(dialect.PresetSchema), "rewrite preset")
	return cmd
}

func convert(ctx context.Context, res *storage.Resolver, dec *encoding.Resolver, rw *dialect.Rewriter, in, out string) error {
	doc, err := readDocument(ctx, res, dec, in)
	if err != nil {
		return err
	}

	text, stats := rw.RewriteWithStats(doc.Text)
	pterm.Success.Printf("Rewrote %s: %d substitutions across %d rules\n", in, stats.Total(), len(stats))

	if err := res.Write(ctx, out, []byte(text)); err != nil {
		return failStage("Write", err)
	}
	pterm.Success.Printf("Wrote %s\n", out)
	return nil
}

// readDocument reads and decodes ref, printing the indicator of both stages.
func readDocument(ctx context.Context, res *storage.Resolver, dec *encoding.Resolver, ref string) (*encoding.Document, error) {
	raw, err := res.ReadAll(ctx, ref)
	if err != nil {
		return nil, failStage("Read", err)
	}
	doc, err := dec.Decode(ref, raw)
	if err != nil {
		return nil, failStage("Decode", err)
	}
	pterm.Success.Printf("Read %s (%d bytes, %s)\n", ref, doc.RawLength, doc.Encoding)
	return doc, nil
}
