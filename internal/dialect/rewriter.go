package dialect

import (
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
)

const moduleName = "dialect"

// Stats holds per-rule match counts of one rewrite.
type Stats map[string]int

// Total returns the sum of matches across rules.
func (s Stats) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}

// Rewriter applies a selection of rules in canonical order.
type Rewriter struct {
	rules []*Rule
}

// NewRewriter selects rules by ID. Duplicates are ignored and an empty selection
// means the whole catalogue. An unknown ID is an error.
func NewRewriter(ruleIDs ...string) (*Rewriter, error) {
	if len(ruleIDs) == 0 {
		ruleIDs = RuleIDs()
	}
	selected := make([]bool, len(catalogue))
	for _, id := range ruleIDs {
		i, ok := catalogueIndex[id]
		if !ok {
			return nil, exception.NewBatchErrorf(moduleName, "unknown rewrite rule %q", id)
		}
		selected[i] = true
	}
	rw := &Rewriter{}
	for i := range catalogue {
		if selected[i] {
			rw.rules = append(rw.rules, &catalogue[i])
		}
	}
	return rw, nil
}

// RuleIDs returns the selected rule IDs in the order they run.
func (rw *Rewriter) RuleIDs() []string {
	ids := make([]string, len(rw.rules))
	for i, r := range rw.rules {
		ids[i] = r.ID
	}
	return ids
}

// Rewrite applies the selected rules.
func (rw *Rewriter) Rewrite(text string) string {
	out, _ := rw.RewriteWithStats(text)
	return out
}

// RewriteWithStats applies the selected rules and reports how often each one matched.
// Every selected rule appears in the stats, with zero when it did not match.
func (rw *Rewriter) RewriteWithStats(text string) (string, Stats) {
	stats := make(Stats, len(rw.rules))
	for _, r := range rw.rules {
		var n int
		text, n = r.apply(text)
		stats[r.ID] = n
	}
	return text, stats
}
