package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tigerroll/dumpshift/internal/phone"
)

func newPhoneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "phone [numbers...]",
		Short: "Validate Spanish phone numbers (runs the sample table without arguments)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runPhoneSamples()
			}
			for _, n := range args {
				if phone.Validate(n) {
					pterm.Success.Printf("%q -> %s valid\n", n, phone.Clean(n))
				} else {
					pterm.Error.Printf("%q -> %s invalid\n", n, phone.Clean(n))
				}
			}
			return nil
		},
	}
}

func runPhoneSamples() error {
	failed := 0
	for _, c := range phone.SampleCases() {
		got := phone.Validate(c.Input)
		if got == c.Valid {
			pterm.Success.Printf("%-22q %-40s valid=%t\n", c.Input, c.Description, got)
			continue
		}
		failed++
		pterm.Error.Printf("%-22q %-40s valid=%t, expected %t\n", c.Input, c.Description, got, c.Valid)
	}
	if failed > 0 {
		return reportedError{fmt.Errorf("%d phone sample cases failed", failed)}
	}
	return nil
}
