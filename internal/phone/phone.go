// Package phone validates phone numbers: Spanish mobile and landline numbers with or
// without the 34 prefix, and any other international number of plausible length.
package phone

import (
	"regexp"
	"strings"
)

var (
	nonDigits     = regexp.MustCompile(`\D`)
	spanishLocal  = regexp.MustCompile(`^[679]\d{8}$`)
	spanishPrefix = regexp.MustCompile(`^34[679]\d{8}$`)
)

// Clean removes every character that is not a digit.
func Clean(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

// Validate reports whether s is an acceptable phone number.
func Validate(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	digits := Clean(s)
	if len(digits) < 7 || len(digits) > 15 {
		return false
	}
	if len(digits) == 9 {
		return spanishLocal.MatchString(digits)
	}
	if strings.HasPrefix(digits, "34") && len(digits) == 11 {
		return spanishPrefix.MatchString(digits)
	}
	return true
}

// Case is a sample input with its expected validity.
type Case struct {
	Input       string
	Description string
	Valid       bool
}

// SampleCases returns the reference table run by "dumpshift phone".
func SampleCases() []Case {
	return []Case{
		{"612345678", "Spanish number, 9 digits", true},
		{"712345678", "Spanish number, 9 digits", true},
		{"912345678", "Spanish number, 9 digits", true},
		{"+34612345678", "Spanish number with +34", true},
		{"0034612345678", "Spanish number with 0034", true},
		{"1234567890", "10 digits", true},
		{"123456789012", "12 digits", true},
		{"+11234567890", "Number with +1", true},
		{"+44123456789", "Number with +44", true},
		{"123456", "Too short (6 digits)", false},
		{"1234567890123456", "Too long (16 digits)", false},
		{"812345678", "Spanish number starting with 8", false},
		{"", "Empty", false},
	}
}
