// Package config defines the dumpshift configuration tree and its loader.
package config

// EmbeddedConfig holds the raw YAML configuration, typically embedded in the binary by main.
type EmbeddedConfig []byte

// Channel types understood by the execution channel factory.
const (
	ChannelTypeShell    = "shell"
	ChannelTypeDatabase = "database"
)

// Job repository types.
const (
	RepositoryTypeMemory = "memory"
	RepositoryTypeSQL    = "sql"
)

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
	// Format is "console" or "json".
	Format string `yaml:"format"`
}

// SystemConfig holds process-wide settings.
type SystemConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// TableConfig is one manifest entry: a logical table and the files that carry its data.
// Source and Cleaned are storage references (a local path or gs://bucket/object).
type TableConfig struct {
	Name    string `yaml:"name"`
	Label   string `yaml:"label"`
	Source  string `yaml:"source"`
	Cleaned string `yaml:"cleaned"`
}

// MigrationConfig drives decoding, rewriting and the per-table manifest.
type MigrationConfig struct {
	// Encodings is the ordered list of candidate encodings tried by the resolver.
	Encodings []string `yaml:"encodings"`
	// Preset names a predefined rewrite rule subset ("schema", "data", "all").
	Preset string `yaml:"preset"`
	// Rules, when non-empty, selects rule IDs explicitly and takes precedence over Preset.
	Rules []string `yaml:"rules"`
	// Keyword is the statement kind extracted by the extract command.
	Keyword string `yaml:"keyword"`
	// OutputDir is where cleaned artifacts go when a table has no explicit Cleaned reference.
	OutputDir string `yaml:"output_dir"`
	// Tables is the manifest processed by import-tables.
	Tables []TableConfig `yaml:"tables"`
}

// ChannelConfig selects the execution channel. Options are bound onto the
// type-specific struct by the channel factory.
type ChannelConfig struct {
	Type    string                 `yaml:"type"`
	Options map[string]interface{} `yaml:"options"`
}

// RetryConfig configures retries of idempotent operations.
type RetryConfig struct {
	// MaxAttempts includes the first attempt. 0 or 1 disables retries.
	MaxAttempts       int `yaml:"max_attempts"`
	InitialIntervalMs int `yaml:"initial_interval_ms"`
}

// VerificationConfig controls the post-import row count report.
type VerificationConfig struct {
	Disabled bool `yaml:"disabled"`
	// Tables overrides the verification targets. Empty means "use the manifest".
	Tables []TableConfig `yaml:"tables"`
	Retry  RetryConfig   `yaml:"retry"`
}

// SchemaConfig configures the optional golang-migrate pre-step.
type SchemaConfig struct {
	MigrationsDir   string `yaml:"migrations_dir"`
	MigrationsTable string `yaml:"migrations_table"`
}

// RepositoryConfig selects where execution history is kept. With type "sql" the
// options are bound onto the database connection settings, like a database channel.
type RepositoryConfig struct {
	Type    string                 `yaml:"type"`
	Options map[string]interface{} `yaml:"options"`
}

// GCSConfig configures the Google Cloud Storage adapter.
type GCSConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	Endpoint        string `yaml:"endpoint"`
}

// StorageConfig configures how dump references are resolved.
type StorageConfig struct {
	// BaseDir anchors relative local references.
	BaseDir string      `yaml:"base_dir"`
	GCS     GCSConfig   `yaml:"gcs"`
	Retry   RetryConfig `yaml:"retry"`
}

// ReportConfig configures artifacts written after a batch.
type ReportConfig struct {
	ParquetPath string `yaml:"parquet_path"`
}

// MetricsConfig configures the Prometheus recorder.
type MetricsConfig struct {
	// Textfile is written in the node_exporter textfile format when the application stops.
	Textfile string `yaml:"textfile"`
	// OTLP also pushes metrics through the exporter configured under tracing.
	OTLP bool `yaml:"otlp"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Exporter    string `yaml:"exporter"` // "otlphttp" or "otlpgrpc"
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// DumpshiftConfig holds everything under the "dumpshift" top-level key.
type DumpshiftConfig struct {
	System       SystemConfig       `yaml:"system"`
	Migration    MigrationConfig    `yaml:"migration"`
	Channel      ChannelConfig      `yaml:"channel"`
	Verification VerificationConfig `yaml:"verification"`
	Schema       SchemaConfig       `yaml:"schema"`
	Repository   RepositoryConfig   `yaml:"repository"`
	Storage      StorageConfig      `yaml:"storage"`
	Report       ReportConfig       `yaml:"report"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Tracing      TracingConfig      `yaml:"tracing"`
}

// Config is the root of the application configuration.
type Config struct {
	Dumpshift DumpshiftConfig `yaml:"dumpshift"`
	// EmbeddedConfig keeps the raw document the configuration was loaded from.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// DefaultEncodings is the candidate order used when none is configured.
var DefaultEncodings = []string{"utf-8", "latin-1", "windows-1252", "iso-8859-1"}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Dumpshift: DumpshiftConfig{
			System: SystemConfig{
				Logging: LoggingConfig{Level: "INFO", Format: "console"},
			},
			Migration: MigrationConfig{
				Encodings: append([]string(nil), DefaultEncodings...),
				Preset:    "data",
				Keyword:   "INSERT INTO",
			},
			Channel: ChannelConfig{
				Type:    ChannelTypeShell,
				Options: map[string]interface{}{},
			},
			Verification: VerificationConfig{
				Retry: RetryConfig{MaxAttempts: 1, InitialIntervalMs: 500},
			},
			Schema: SchemaConfig{
				MigrationsTable: "schema_migrations",
			},
			Storage: StorageConfig{
				BaseDir: ".",
				Retry:   RetryConfig{MaxAttempts: 3, InitialIntervalMs: 200},
			},
			Tracing: TracingConfig{
				Exporter:    "otlphttp",
				ServiceName: "dumpshift",
			},
		},
	}
}
