package dialect

import (
	"sort"

	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
)

// Preset names a predefined rule selection.
type Preset string

const (
	// PresetSchema converts a full dump (DDL and data).
	PresetSchema Preset = "schema"
	// PresetData prepares a data-only dump for import into an existing schema.
	PresetData Preset = "data"
	// PresetAll selects the whole catalogue.
	PresetAll Preset = "all"
)

var presets = map[Preset][]string{
	PresetSchema: {
		RuleBlockComments, RuleLineComments, RuleSessionSettings, RuleTableLocks,
		RuleDropTable, RuleBacktickIdentifiers, RuleTableOptions, RuleBlankLines,
	},
	PresetData: {
		RuleBlockComments, RuleLineComments, RuleSessionSettings, RuleTableLocks,
		RuleAlterTable, RuleBacktickIdentifiers, RuleBinaryLiterals, RuleBlankLines,
	},
}

// PresetRules resolves a preset name to its rule IDs in canonical order.
func PresetRules(name string) ([]string, error) {
	p := Preset(name)
	if p == PresetAll {
		return RuleIDs(), nil
	}
	ids, ok := presets[p]
	if !ok {
		return nil, exception.NewBatchErrorf(moduleName, "unknown preset %q (expected schema, data or all)", name)
	}
	return append([]string(nil), ids...), nil
}

// Presets lists the preset names, sorted.
func Presets() []string {
	names := []string{string(PresetAll)}
	for p := range presets {
		names = append(names, string(p))
	}
	sort.Strings(names)
	return names
}

// ForConfig builds a rewriter from an explicit rule list, falling back to the preset
// when rules is empty.
func ForConfig(preset string, rules []string) (*Rewriter, error) {
	if len(rules) > 0 {
		return NewRewriter(rules...)
	}
	ids, err := PresetRules(preset)
	if err != nil {
		return nil, err
	}
	return NewRewriter(ids...)
}
