// Package config holds the connection settings of the database execution channel.
package config

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
}

// DatabaseConfig holds database connection settings. It is bound from
// dumpshift.channel.options when the channel type is "database".
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "postgres" (default) or "sqlite"
	DSN      string `yaml:"dsn"`    // Overrides the individual fields when set.
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"` // Database name, or file path for sqlite.
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Sslmode  string `yaml:"sslmode"`
	// LogLevel is the GORM log level: "silent", "error", "warn" or "info".
	LogLevel string     `yaml:"log_level"`
	Pool     PoolConfig `yaml:"pool"`
}

// NewDatabaseConfig returns the defaults of a local PostgreSQL server.
func NewDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:   "postgres",
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Sslmode:  "disable",
		LogLevel: "silent",
		Pool:     PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1},
	}
}
