package config

import "go.uber.org/fx"

// NewLoggingConfigProvider extracts the logging section.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.Dumpshift.System.Logging
}

// NewMigrationConfigProvider extracts the migration section.
func NewMigrationConfigProvider(cfg *Config) *MigrationConfig {
	return &cfg.Dumpshift.Migration
}

// NewChannelConfigProvider extracts the channel section.
func NewChannelConfigProvider(cfg *Config) *ChannelConfig {
	return &cfg.Dumpshift.Channel
}

// NewStorageConfigProvider extracts the storage section.
func NewStorageConfigProvider(cfg *Config) *StorageConfig {
	return &cfg.Dumpshift.Storage
}

// NewRepositoryConfigProvider extracts the repository section.
func NewRepositoryConfigProvider(cfg *Config) *RepositoryConfig {
	return &cfg.Dumpshift.Repository
}

// Module exposes the configuration sections to components that need only one of them.
var Module = fx.Options(
	fx.Provide(
		NewLoggingConfigProvider,
		NewMigrationConfigProvider,
		NewChannelConfigProvider,
		NewStorageConfigProvider,
		NewRepositoryConfigProvider,
	),
)
