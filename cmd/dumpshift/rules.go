package main

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tigerroll/dumpshift/internal/dialect"
)

func newRulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the rewrite rules and presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := renderRules()
			if err != nil {
				return err
			}
			pterm.Println(out)
			return nil
		},
	}
}

func renderRules() (string, error) {
	data := pterm.TableData{{"#", "Rule", "Flags", "Description"}}
	for i, r := range dialect.Rules() {
		data = append(data, []string{pterm.Sprint(i + 1), r.ID, r.Mode.String(), r.Description})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(table)
	b.WriteString("\n\nPresets:\n")
	for _, name := range dialect.Presets() {
		ids, err := dialect.PresetRules(name)
		if err != nil {
			return "", err
		}
		b.WriteString("  " + name + ": " + strings.Join(ids, ", ") + "\n")
	}
	return b.String(), nil
}
