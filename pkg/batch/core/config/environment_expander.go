package config

import (
	"os"
	"strings"
)

// EnvironmentExpander expands environment placeholders in raw configuration text.
type EnvironmentExpander interface {
	Expand(input []byte) ([]byte, error)
}

// OsEnvironmentExpander expands ${VAR}, $VAR and ${VAR:-default} from the process environment.
// An unset variable without a default expands to the empty string.
type OsEnvironmentExpander struct {
	lookup func(string) (string, bool)
}

// NewOsEnvironmentExpander creates an expander backed by os.LookupEnv.
func NewOsEnvironmentExpander() *OsEnvironmentExpander {
	return &OsEnvironmentExpander{lookup: os.LookupEnv}
}

// NewMapEnvironmentExpander creates an expander that resolves names from vars only.
func NewMapEnvironmentExpander(vars map[string]string) *OsEnvironmentExpander {
	return &OsEnvironmentExpander{lookup: func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}}
}

// Expand never fails; the error is part of the interface for expanders that can.
func (e *OsEnvironmentExpander) Expand(input []byte) ([]byte, error) {
	out := os.Expand(string(input), func(name string) string {
		key, def, hasDefault := strings.Cut(name, ":-")
		if v, ok := e.lookup(key); ok && v != "" {
			return v
		}
		if hasDefault {
			return def
		}
		return ""
	})
	return []byte(out), nil
}
