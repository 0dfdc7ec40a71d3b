// Package postgres registers the PostgreSQL dialector.
package postgres

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/dumpshift/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/dumpshift/pkg/batch/adapter/database/gorm"
)

// DriverName is the value of channel.options.driver selecting this dialector.
const DriverName = "postgres"

func init() {
	gormadapter.RegisterDialector(DriverName, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return NewDialector(ConnectionString(cfg)), nil
	})
}

// ConnectionString generates the DSN for PostgreSQL connections.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	if c.DSN != "" {
		return c.DSN
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s", c.Host, c.Port, c.User, c.Database, c.Sslmode)
	if c.Password != "" {
		dsn += fmt.Sprintf(" password=%s", c.Password)
	}
	return dsn
}

// NewDialector uses the simple query protocol so that a whole script with many
// statements can be sent in a single Exec.
func NewDialector(dsn string) gorm.Dialector {
	return postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	})
}
