// Package report renders batch results for the terminal and exports them as Parquet.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/tigerroll/dumpshift/internal/orchestrator"
)

// maxDiagnostic bounds the diagnostic column of the terminal summary.
const maxDiagnostic = 60

// Summary renders one row per table followed by the verification output.
func Summary(r *orchestrator.BatchReport) (string, error) {
	data := pterm.TableData{{"Table", "Outcome", "Encoding", "In", "Out", "Exit", "Duration", "Diagnostic"}}
	for _, j := range r.Jobs {
		data = append(data, []string{
			j.Name(),
			j.Outcome().String(),
			orDash(j.Encoding),
			fmt.Sprint(j.BytesIn),
			fmt.Sprint(j.BytesOut),
			fmt.Sprint(j.ExitCode),
			j.Duration.Round(time.Millisecond).String(),
			truncate(firstLine(j.Diagnostic), maxDiagnostic),
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(table)
	b.WriteString("\n")
	fmt.Fprintf(&b, "%d succeeded, %d failed, %d total\n", len(r.Succeeded()), len(r.Failed()), len(r.Jobs))
	switch {
	case !r.VerificationRan:
		b.WriteString("Verification skipped.\n")
	case r.VerificationErr != nil:
		fmt.Fprintf(&b, "Verification failed: %v\n", r.VerificationErr)
		if r.Verification != nil && r.Verification.Stderr != "" {
			b.WriteString(r.Verification.Stderr)
		}
	case r.Verification != nil:
		b.WriteString(r.Verification.Output)
	}
	return b.String(), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
