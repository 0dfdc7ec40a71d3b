// Package channel sends scripts and queries to the destination database.
//
// Two channels exist: "shell" runs a psql client (by default inside a docker container)
// and "database" talks to the server through gorm. Both report a non-zero exit with
// an error satisfying errors.Is(err, exception.ErrChannelExecution) alongside the Result.
package channel

import (
	"context"
	"io"
)

const moduleName = "channel"

// Result is what a channel invocation produced.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Succeeded reports whether the invocation exited with status 0.
func (r *Result) Succeeded() bool {
	return r != nil && r.ExitCode == 0
}

// Channel executes SQL against the destination. Calls block until the work is done,
// and at most one call is in flight at a time.
type Channel interface {
	// Name identifies the channel in logs and metrics.
	Name() string
	// ExecScript runs a whole SQL script read from script.
	ExecScript(ctx context.Context, script io.Reader) (*Result, error)
	// Query runs a single query and returns its tabular output.
	Query(ctx context.Context, query string) (*Result, error)
	// Close releases the resources held by the channel.
	Close() error
}
