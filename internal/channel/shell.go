package channel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"

	port "github.com/tigerroll/dumpshift/pkg/batch/core/application/port"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

// ShellConfig is bound from dumpshift.channel.options when the channel type is "shell".
type ShellConfig struct {
	// Environment is the container running the server. Empty runs Client on the host.
	Environment string `yaml:"environment"`
	Database    string `yaml:"database"`
	User        string `yaml:"user"`
	// Client is the SQL client binary.
	Client string `yaml:"client"`
	// Command replaces the "docker exec [-i] <environment>" prefix, e.g. "podman exec -i pg".
	Command string `yaml:"command"`
}

// NewShellConfig returns the settings of the original docker setup.
func NewShellConfig() ShellConfig {
	return ShellConfig{
		Environment: "postgresSQL2",
		Database:    "ElemenBarber",
		User:        "postgres",
		Client:      "psql",
	}
}

// Runner starts argv, feeds it stdin (which may be nil) and waits for it to exit.
// A non-nil error means the process could not be run at all.
type Runner func(ctx context.Context, argv []string, stdin io.Reader) (*Result, error)

// ShellOption configures a ShellChannel.
type ShellOption func(*ShellChannel)

// WithRunner replaces the process runner.
func WithRunner(r Runner) ShellOption {
	return func(c *ShellChannel) { c.run = r }
}

// ShellChannel runs the SQL client as a child process.
type ShellChannel struct {
	cfg    ShellConfig
	prefix []string
	run    Runner
}

// NewShellChannel validates cfg and creates the channel.
func NewShellChannel(cfg ShellConfig, opts ...ShellOption) (*ShellChannel, error) {
	if cfg.Client == "" {
		cfg.Client = "psql"
	}
	c := &ShellChannel{cfg: cfg, run: execRunner}
	if cfg.Command != "" {
		prefix, err := shellquote.Split(cfg.Command)
		if err != nil {
			return nil, exception.NewBatchError(moduleName, fmt.Sprintf("invalid channel command %q", cfg.Command), err, false, false)
		}
		c.prefix = prefix
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name implements Channel.
func (c *ShellChannel) Name() string {
	return "shell"
}

func (c *ShellChannel) clientArgs() []string {
	return []string{c.cfg.Client, "-U", c.cfg.User, "-d", c.cfg.Database}
}

func (c *ShellChannel) commandPrefix(interactive bool) []string {
	if c.prefix != nil {
		return append([]string(nil), c.prefix...)
	}
	if c.cfg.Environment == "" {
		return nil
	}
	if interactive {
		return []string{"docker", "exec", "-i", c.cfg.Environment}
	}
	return []string{"docker", "exec", c.cfg.Environment}
}

// ScriptArgs returns the argv used by ExecScript. The script is read from stdin.
func (c *ShellChannel) ScriptArgs() []string {
	argv := append(c.commandPrefix(true), c.clientArgs()...)
	return append(argv, "-f", "-")
}

// QueryArgs returns the argv used by Query. The query is passed as one literal argument.
func (c *ShellChannel) QueryArgs(query string) []string {
	argv := append(c.commandPrefix(false), c.clientArgs()...)
	return append(argv, "-c", query)
}

// ExecScript implements Channel.
func (c *ShellChannel) ExecScript(ctx context.Context, script io.Reader) (*Result, error) {
	return c.invoke(ctx, c.ScriptArgs(), script)
}

// Query implements Channel.
func (c *ShellChannel) Query(ctx context.Context, query string) (*Result, error) {
	return c.invoke(ctx, c.QueryArgs(query), nil)
}

func (c *ShellChannel) invoke(ctx context.Context, argv []string, stdin io.Reader) (*Result, error) {
	if se := port.GetStepExecutionFromContext(ctx); se != nil {
		logger.Debugf("[%s] Running %s", se.StepName, shellquote.Join(argv...))
	} else {
		logger.Debugf("Running %s", shellquote.Join(argv...))
	}
	res, err := c.run(ctx, argv, stdin)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("cannot run %s", argv[0]), err, false, false)
	}
	if res.ExitCode != 0 {
		return res, exception.NewChannelExecutionError(moduleName, res.ExitCode, res.Stderr)
	}
	return res, nil
}

// Close implements Channel.
func (c *ShellChannel) Close() error {
	return nil
}

func execRunner(ctx context.Context, argv []string, stdin io.Reader) (*Result, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, errors.Join(err, ctxErr)
	}
	return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
}
