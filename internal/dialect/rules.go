// Package dialect rewrites MySQL dump text into text PostgreSQL accepts.
//
// The rewrite is a fixed, ordered catalogue of regular-expression rules. Any subset
// may be selected, but selected rules always run in catalogue order: comment and
// terminator based rules run before backtick rewriting, and binary scrubbing runs
// before blank-line compaction. Running a rewriter on its own output is a no-op.
package dialect

import (
	"regexp"
	"strings"
)

// Rule identifiers, in canonical order.
const (
	RuleBlockComments       = "block-comments"
	RuleLineComments        = "line-comments"
	RuleSessionSettings     = "session-settings"
	RuleTableLocks          = "table-locks"
	RuleDropTable           = "drop-table"
	RuleAlterTable          = "alter-table"
	RuleBacktickIdentifiers = "backtick-identifiers"
	RuleTableOptions        = "table-options"
	RuleBinaryLiterals      = "binary-literals"
	RuleBlankLines          = "blank-lines"
)

// Mode holds the regular expression flags of a rule.
type Mode uint8

const (
	CaseInsensitive Mode = 1 << iota
	DotAll
	MultiLine
)

func (m Mode) prefix() string {
	var flags strings.Builder
	if m&CaseInsensitive != 0 {
		flags.WriteByte('i')
	}
	if m&DotAll != 0 {
		flags.WriteByte('s')
	}
	if m&MultiLine != 0 {
		flags.WriteByte('m')
	}
	if flags.Len() == 0 {
		return ""
	}
	return "(?" + flags.String() + ")"
}

// String renders the flags the way they appear in a regular expression ("ism").
func (m Mode) String() string {
	p := m.prefix()
	if p == "" {
		return "-"
	}
	return strings.TrimSuffix(strings.TrimPrefix(p, "(?"), ")")
}

// Substitution is one (pattern, replacement) pair. When Expand is set it computes the
// replacement from the match instead of Replacement.
type Substitution struct {
	Pattern     string
	Replacement string
	Expand      func(re *regexp.Regexp, match string) string

	re *regexp.Regexp
}

// Rule is an entry of the catalogue.
type Rule struct {
	ID            string
	Description   string
	Mode          Mode
	Substitutions []Substitution
}

// apply runs every substitution of the rule and returns the text and the number of matches.
func (r *Rule) apply(text string) (string, int) {
	matches := 0
	for i := range r.Substitutions {
		s := &r.Substitutions[i]
		n := len(s.re.FindAllStringIndex(text, -1))
		if n == 0 {
			continue
		}
		matches += n
		if s.Expand != nil {
			re := s.re
			text = re.ReplaceAllStringFunc(text, func(m string) string { return s.Expand(re, m) })
		} else {
			text = s.re.ReplaceAllLiteralString(text, s.Replacement)
		}
	}
	return text, matches
}

// The identifier body cannot hold quotes or whitespace, so a backtick pair
// inside a string literal is left alone and the name needs no escaping.
func quoteIdentifier(re *regexp.Regexp, match string) string {
	return `"` + re.FindStringSubmatch(match)[1] + `"`
}

// Rules run once, in catalogue order. A later rule can leave text that an
// earlier rule would have matched ("ENGINE=x SET a=1;" becomes "SET a=1;"),
// which mysqldump output never contains.
var catalogue = []Rule{
	{
		ID:            RuleBlockComments,
		Description:   "Removes /* ... */ comments, including conditional /*!40101 ... */ blocks",
		Mode:          DotAll,
		Substitutions: []Substitution{{Pattern: `/\*.*?\*/`}},
	},
	{
		ID:            RuleLineComments,
		Description:   "Removes -- comments up to the end of the line, keeping the line break",
		Substitutions: []Substitution{{Pattern: `--[^\n]*`}},
	},
	{
		ID:            RuleSessionSettings,
		Description:   "Removes SET statements that start a line",
		Mode:          MultiLine,
		Substitutions: []Substitution{{Pattern: `^[ \t]*SET\b[^;\n]*;`}},
	},
	{
		ID:            RuleTableLocks,
		Description:   "Removes LOCK TABLES ...; and UNLOCK TABLES;",
		Mode:          MultiLine,
		Substitutions: []Substitution{{Pattern: `^[ \t]*(?:UN)?LOCK TABLES\b[^;\n]*;`}},
	},
	{
		ID:            RuleDropTable,
		Description:   "Removes DROP TABLE IF EXISTS statements",
		Substitutions: []Substitution{{Pattern: `\bDROP TABLE IF EXISTS\b[^;\n]*;`}},
	},
	{
		ID:            RuleAlterTable,
		Description:   "Removes ALTER TABLE statements, which may span lines",
		Substitutions: []Substitution{{Pattern: `\bALTER TABLE\b[^;]*;`}},
	},
	{
		ID:            RuleBacktickIdentifiers,
		Description:   "Rewrites `identifier` as \"identifier\"",
		Substitutions: []Substitution{{Pattern: "`([\\p{L}\\p{N}_$-]+)`", Expand: quoteIdentifier}},
	},
	{
		ID:          RuleTableOptions,
		Description: "Strips ENGINE=, DEFAULT CHARSET=, COLLATE= and AUTO_INCREMENT= table options",
		Substitutions: []Substitution{
			{Pattern: `\b(?:ENGINE|DEFAULT CHARSET|COLLATE|AUTO_INCREMENT)=\w+[ \t]*`},
		},
	},
	{
		ID:          RuleBinaryLiterals,
		Description: "Replaces _binary '...' and _binary \\\\0 literals with NULL",
		Substitutions: []Substitution{
			{Pattern: `_binary\s*'(?:[^'\\]|\\[\s\S]|'')*'`, Replacement: "NULL"},
			{Pattern: regexp.QuoteMeta(`_binary \\0`), Replacement: "NULL"},
		},
	},
	{
		ID:            RuleBlankLines,
		Description:   "Compacts runs of blank lines to a single blank line",
		Substitutions: []Substitution{{Pattern: `\n\s*\n`, Replacement: "\n\n"}},
	},
}

var catalogueIndex = make(map[string]int, len(catalogue))

func init() {
	for i := range catalogue {
		r := &catalogue[i]
		for j := range r.Substitutions {
			s := &r.Substitutions[j]
			s.re = regexp.MustCompile(r.Mode.prefix() + s.Pattern)
		}
		catalogueIndex[r.ID] = i
	}
}

// Rules returns a copy of the catalogue in canonical order.
func Rules() []Rule {
	out := make([]Rule, len(catalogue))
	copy(out, catalogue)
	return out
}

// RuleIDs returns every rule ID in canonical order.
func RuleIDs() []string {
	ids := make([]string, len(catalogue))
	for i, r := range catalogue {
		ids[i] = r.ID
	}
	return ids
}
