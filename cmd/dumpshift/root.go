package main

import (
	"errors"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tigerroll/dumpshift/internal/app"
	"github.com/tigerroll/dumpshift/pkg/batch/core/config"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	embedded   config.EmbeddedConfig
	configPath string
	envFile    string
	logLevel   string
}

// NewRootCommand builds the dumpshift command tree.
func NewRootCommand(embedded []byte, envFile string) *cobra.Command {
	opts := &rootOptions{embedded: embedded, envFile: envFile}

	root := &cobra.Command{
		Use:   "dumpshift",
		Short: "Migrate MySQL dumps into PostgreSQL",
		Long: `dumpshift converts MySQL dump files into PostgreSQL-compatible SQL and
imports them table by table through psql or a direct database connection.

Examples:
  dumpshift convert full_dump.sql postgres_schema.sql
  dumpshift extract mysql_data_only.sql inserts.sql
  dumpshift migrate mysql_data_only.sql --cleaned postgresql_clean_data.sql
  dumpshift import-tables --fail-on-error
  dumpshift verify
  dumpshift history --job import-tables
  dumpshift rules
  dumpshift phone 612345678 +34 612 345 678`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "configuration file (defaults to the embedded application.yaml)")
	flags.StringVar(&opts.envFile, "env-file", envFile, ".env file loaded before ${VAR} expansion")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level override (DEBUG, INFO, WARN, ERROR)")

	root.AddCommand(
		newConvertCommand(opts),
		newExtractCommand(opts),
		newMigrateCommand(opts),
		newImportTablesCommand(opts),
		newVerifyCommand(opts),
		newHistoryCommand(opts),
		newRulesCommand(),
		newPhoneCommand(),
	)
	return root
}

// loadConfig loads the configuration selected by the flags and applies its logging section.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadConfigFile(o.envFile, o.configPath)
	} else {
		cfg, err = config.LoadConfig(o.envFile, o.embedded)
	}
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Dumpshift.System.Logging.Level = o.logLevel
	}
	app.ApplyLoggingConfig(&cfg.Dumpshift.System.Logging)
	return cfg, nil
}

// reportedError is an error whose failure indicator was already printed.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// failStage prints the failure indicator of stage and returns err marked as reported.
func failStage(stage string, err error) error {
	pterm.Error.Printf("%s failed: %v\n", stage, err)
	return reportedError{err}
}

// isReported reports whether err was already printed.
func isReported(err error) bool {
	var re reportedError
	return errors.As(err, &re)
}
