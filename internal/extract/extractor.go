// Package extract pulls the statements of one kind out of rewritten dump text.
//
// A statement runs from its keyword to the first ';' that follows the quoted table
// identifier, across lines. There is no parenthesis balancing: a ';' inside a string
// literal truncates the statement.
package extract

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
)

const moduleName = "extract"

// DefaultKeyword is the statement kind extracted when none is configured.
const DefaultKeyword = "INSERT INTO"

// DefaultHeader is written at the top of an extracted-statement file.
var DefaultHeader = []string{
	"INSERT statements for PostgreSQL",
	"Generated automatically from MySQL",
}

// Statement is one extracted statement. Table is the unquoted name of the target table.
type Statement struct {
	Index int
	Table string
	Text  string
}

// Result holds the statements found in one document, in document order.
type Result struct {
	Keyword    string
	Statements []Statement
}

// Found reports whether at least one statement matched.
func (r *Result) Found() bool {
	return r != nil && len(r.Statements) > 0
}

// Tables returns the distinct table names in order of first appearance.
func (r *Result) Tables() []string {
	seen := make(map[string]struct{})
	var tables []string
	for _, s := range r.Statements {
		if _, ok := seen[s.Table]; ok {
			continue
		}
		seen[s.Table] = struct{}{}
		tables = append(tables, s.Table)
	}
	return tables
}

// Extractor finds the statements that start with its keyword.
type Extractor struct {
	keyword string
	pattern *regexp.Regexp
}

// NewExtractor builds an extractor for keyword ("INSERT INTO" when empty). The words of the
// keyword may be separated by any whitespace in the text and match case-insensitively.
func NewExtractor(keyword string) (*Extractor, error) {
	words := strings.Fields(keyword)
	if len(words) == 0 {
		words = strings.Fields(DefaultKeyword)
	}
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	pattern, err := regexp.Compile(`(?is)\b` + strings.Join(words, `\s+`) + `\s+"([^"]+)"[^;]+;`)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("invalid keyword %q", keyword), err, false, false)
	}
	return &Extractor{keyword: strings.Join(strings.Fields(keyword), " "), pattern: pattern}, nil
}

// Keyword returns the normalized keyword.
func (e *Extractor) Keyword() string {
	if e.keyword == "" {
		return DefaultKeyword
	}
	return e.keyword
}

// Extract returns every statement in text. No deduplication is done.
func (e *Extractor) Extract(text string) *Result {
	result := &Result{Keyword: e.Keyword()}
	for i, m := range e.pattern.FindAllStringSubmatch(text, -1) {
		result.Statements = append(result.Statements, Statement{
			Index: i,
			Table: m[1],
			Text:  m[0],
		})
	}
	return result
}

// WriteStatements writes header as "-- " comment lines followed by a blank line, then
// one statement per line.
func WriteStatements(w io.Writer, result *Result, header []string) error {
	bw := bufio.NewWriter(w)
	for _, line := range header {
		if _, err := fmt.Fprintf(bw, "-- %s\n", line); err != nil {
			return err
		}
	}
	if len(header) > 0 {
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	if result != nil {
		for _, s := range result.Statements {
			if _, err := bw.WriteString(s.Text + "\n"); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
