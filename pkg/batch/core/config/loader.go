package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

const moduleName = "config"

// LoadConfig builds the configuration in four layers:
//  1. defaults from NewConfig
//  2. the YAML document, after ${VAR} expansion (variables may come from envFilePath)
//  3. merge of non-zero YAML values over the defaults
//  4. environment variable overrides named after the yaml tags (DUMPSHIFT_CHANNEL_TYPE, ...)
func LoadConfig(envFilePath string, raw EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, raw, NewOsEnvironmentExpander())
}

func loadConfig(envFilePath string, raw EmbeddedConfig, expander EnvironmentExpander) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Debugf(".env file (%s) not loaded: %v", envFilePath, err)
		}
	}

	cfg := NewConfig()
	cfg.EmbeddedConfig = raw

	expanded, err := expander.Expand(raw)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to expand environment placeholders", err, false, false)
	}

	var yamlConfig Config
	if err := yaml.Unmarshal(expanded, &yamlConfig); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to unmarshal config", err, false, false)
	}
	mergeConfig(cfg, &yamlConfig)

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err, false, false)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFile reads a YAML file from disk and loads it like LoadConfig.
func LoadConfigFile(envFilePath, configPath string) (*Config, error) {
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, exception.NewIOFailure(moduleName, fmt.Sprintf("cannot read config file %s", configPath), err)
	}
	return LoadConfig(envFilePath, raw)
}

// Validate checks the settings that cannot be corrected later by a component.
func Validate(cfg *Config) error {
	d := cfg.Dumpshift
	switch d.Channel.Type {
	case ChannelTypeShell, ChannelTypeDatabase:
	default:
		return exception.NewBatchErrorf(moduleName, "unknown channel type %q (expected %q or %q)", d.Channel.Type, ChannelTypeShell, ChannelTypeDatabase)
	}

	switch d.Repository.Type {
	case RepositoryTypeMemory, RepositoryTypeSQL:
	default:
		return exception.NewBatchErrorf(moduleName, "unknown repository type %q (expected %q or %q)", d.Repository.Type, RepositoryTypeMemory, RepositoryTypeSQL)
	}

	seen := make(map[string]struct{}, len(d.Migration.Tables))
	for i, t := range d.Migration.Tables {
		if strings.TrimSpace(t.Name) == "" {
			return exception.NewBatchErrorf(moduleName, "migration.tables[%d] has no name", i)
		}
		if t.Source == "" {
			return exception.NewBatchErrorf(moduleName, "migration.tables[%d] (%s) has no source", i, t.Name)
		}
		if _, dup := seen[t.Name]; dup {
			return exception.NewBatchErrorf(moduleName, "table %q appears twice in migration.tables", t.Name)
		}
		seen[t.Name] = struct{}{}
	}
	return nil
}

// CleanedRef returns where the cleaned artifact of t is written.
func (t TableConfig) CleanedRef(outputDir string) string {
	if t.Cleaned != "" {
		return t.Cleaned
	}
	name := t.Name + "_clean.sql"
	if outputDir == "" {
		return name
	}
	return strings.TrimSuffix(outputDir, "/") + "/" + name
}

// InitialInterval returns the first backoff as a duration.
func (r RetryConfig) InitialInterval() time.Duration {
	return time.Duration(r.InitialIntervalMs) * time.Millisecond
}

// DisplayLabel returns the label shown in the verification report.
// Without an explicit label the table name is capitalized ("usuario" -> "Usuario").
func (t TableConfig) DisplayLabel() string {
	if t.Label != "" {
		return t.Label
	}
	r, size := utf8.DecodeRuneInString(t.Name)
	if r == utf8.RuneError {
		return t.Name
	}
	return string(unicode.ToUpper(r)) + t.Name[size:]
}

func mergeConfig(dest, src *Config) {
	d, s := &dest.Dumpshift, &src.Dumpshift

	if s.System.Logging.Level != "" {
		d.System.Logging.Level = s.System.Logging.Level
	}
	if s.System.Logging.Format != "" {
		d.System.Logging.Format = s.System.Logging.Format
	}

	mergeMigrationConfig(&d.Migration, &s.Migration)

	if s.Channel.Type != "" {
		d.Channel.Type = s.Channel.Type
	}
	if s.Channel.Options != nil {
		if d.Channel.Options == nil {
			d.Channel.Options = make(map[string]interface{})
		}
		for k, v := range s.Channel.Options {
			d.Channel.Options[k] = v
		}
	}

	if s.Verification.Disabled {
		d.Verification.Disabled = true
	}
	if s.Verification.Tables != nil {
		d.Verification.Tables = s.Verification.Tables
	}
	mergeRetryConfig(&d.Verification.Retry, &s.Verification.Retry)

	if s.Schema.MigrationsDir != "" {
		d.Schema.MigrationsDir = s.Schema.MigrationsDir
	}
	if s.Schema.MigrationsTable != "" {
		d.Schema.MigrationsTable = s.Schema.MigrationsTable
	}

	if s.Repository.Type != "" {
		d.Repository.Type = s.Repository.Type
	}
	if s.Repository.Options != nil {
		if d.Repository.Options == nil {
			d.Repository.Options = make(map[string]interface{})
		}
		for k, v := range s.Repository.Options {
			d.Repository.Options[k] = v
		}
	}

	if s.Storage.BaseDir != "" {
		d.Storage.BaseDir = s.Storage.BaseDir
	}
	if s.Storage.GCS.CredentialsFile != "" {
		d.Storage.GCS.CredentialsFile = s.Storage.GCS.CredentialsFile
	}
	if s.Storage.GCS.Endpoint != "" {
		d.Storage.GCS.Endpoint = s.Storage.GCS.Endpoint
	}
	mergeRetryConfig(&d.Storage.Retry, &s.Storage.Retry)

	if s.Report.ParquetPath != "" {
		d.Report.ParquetPath = s.Report.ParquetPath
	}
	if s.Metrics.Textfile != "" {
		d.Metrics.Textfile = s.Metrics.Textfile
	}
	if s.Metrics.OTLP {
		d.Metrics.OTLP = true
	}
	mergeTracingConfig(&d.Tracing, &s.Tracing)
}

func mergeMigrationConfig(dest, src *MigrationConfig) {
	if len(src.Encodings) > 0 {
		dest.Encodings = src.Encodings
	}
	if src.Preset != "" {
		dest.Preset = src.Preset
	}
	if len(src.Rules) > 0 {
		dest.Rules = src.Rules
	}
	if src.Keyword != "" {
		dest.Keyword = src.Keyword
	}
	if src.OutputDir != "" {
		dest.OutputDir = src.OutputDir
	}
	if src.Tables != nil {
		dest.Tables = src.Tables
	}
}

func mergeRetryConfig(dest, src *RetryConfig) {
	if src.MaxAttempts > 0 {
		dest.MaxAttempts = src.MaxAttempts
	}
	if src.InitialIntervalMs > 0 {
		dest.InitialIntervalMs = src.InitialIntervalMs
	}
}

func mergeTracingConfig(dest, src *TracingConfig) {
	if src.Enabled {
		dest.Enabled = true
	}
	if src.Exporter != "" {
		dest.Exporter = src.Exporter
	}
	if src.Endpoint != "" {
		dest.Endpoint = src.Endpoint
	}
	if src.Insecure {
		dest.Insecure = true
	}
	if src.ServiceName != "" {
		dest.ServiceName = src.ServiceName
	}
}

// loadStructFromEnv walks val and overrides fields from environment variables whose
// names are the upper-cased yaml tag path joined by "_" (e.g. DUMPSHIFT_MIGRATION_PRESET).
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		switch {
		case field.Kind() == reflect.Struct:
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		case field.Kind() == reflect.Map && field.Type().Key().Kind() == reflect.String && field.Type().Elem().Kind() == reflect.Interface:
			loadMapFromEnv(field, envVarName+"_")
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// loadMapFromEnv fills a map[string]interface{} from every variable starting with prefix.
// DUMPSHIFT_CHANNEL_OPTIONS_DATABASE=ElemenBarber sets options["database"] = "ElemenBarber".
func loadMapFromEnv(mapField reflect.Value, prefix string) {
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(env, prefix), "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			continue
		}
		if mapField.IsNil() {
			mapField.Set(reflect.MakeMap(mapField.Type()))
		}
		mapField.SetMapIndex(reflect.ValueOf(strings.ToLower(parts[0])), reflect.ValueOf(parts[1]))
	}
}

// setField converts value to the kind of field. Slices of strings are comma-separated.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		field.Set(reflect.ValueOf(items))
	}
	return nil
}
