// Package sqlite registers the SQLite dialector, used for local dry runs.
package sqlite

import (
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/dumpshift/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/dumpshift/pkg/batch/adapter/database/gorm"
)

// DriverName is the value of channel.options.driver selecting this dialector.
const DriverName = "sqlite"

func init() {
	gormadapter.RegisterDialector(DriverName, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		path := cfg.DSN
		if path == "" {
			path = cfg.Database
		}
		if path == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		return sqlite.Open(path), nil
	})
}
