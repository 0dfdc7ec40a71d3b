// Package schema applies golang-migrate migrations to the target database before
// data is imported into it.
package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	dbconfig "github.com/tigerroll/dumpshift/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/dumpshift/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/dumpshift/pkg/batch/adapter/database/gorm/postgres"
	_ "github.com/tigerroll/dumpshift/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

const moduleName = "schema"

// DefaultMigrationsTable is the version table used when none is configured.
const DefaultMigrationsTable = "schema_migrations"

// Result describes the database after Up.
type Result struct {
	// Version is the last applied migration, 0 when none was ever applied.
	Version uint
	Dirty   bool
	// Changed is false when there was nothing to apply.
	Changed bool
}

// Migrator applies the *.up.sql files of a directory. Every call opens its own
// connection so that the driver can close it without touching the import channel.
type Migrator struct {
	cfg   dbconfig.DatabaseConfig
	table string
}

// NewMigrator creates a Migrator for the database described by cfg.
func NewMigrator(cfg dbconfig.DatabaseConfig, table string) *Migrator {
	if table == "" {
		table = DefaultMigrationsTable
	}
	return &Migrator{cfg: cfg, table: table}
}

// Table returns the version table name.
func (m *Migrator) Table() string {
	return m.table
}

func (m *Migrator) databaseDriver(sqlDB *sql.DB) (database.Driver, error) {
	switch m.cfg.Driver {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: m.table})
	case "sqlite":
		return sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: m.table})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", m.cfg.Driver)
	}
}

func (m *Migrator) instance(fsys fs.FS, dir string) (*migrate.Migrate, error) {
	db, err := gormadapter.Open(m.cfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to get underlying sql.DB", err, false, false)
	}

	src, err := iofs.New(fsys, dir)
	if err != nil {
		sqlDB.Close()
		return nil, exception.NewIOFailure(moduleName, fmt.Sprintf("cannot read migrations from %s", dir), err)
	}
	drv, err := m.databaseDriver(sqlDB)
	if err != nil {
		src.Close()
		sqlDB.Close()
		return nil, exception.NewBatchError(moduleName, "failed to create database driver", err, false, false)
	}
	mi, err := migrate.NewWithInstance("iofs", src, m.cfg.Driver, drv)
	if err != nil {
		src.Close()
		drv.Close()
		return nil, exception.NewBatchError(moduleName, "failed to create migrate instance", err, false, false)
	}
	mi.Log = migrateLogger{}
	return mi, nil
}

// Up applies every pending migration found in dir. Cancelling ctx stops after the
// migration currently running.
func (m *Migrator) Up(ctx context.Context, fsys fs.FS, dir string) (Result, error) {
	logger.Infof("Applying migrations from %s (driver: %s, table: %s).", dir, m.cfg.Driver, m.table)

	mi, err := m.instance(fsys, dir)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if srcErr, dbErr := mi.Close(); srcErr != nil || dbErr != nil {
			logger.Warnf("Closing migrate instance: source=%v database=%v", srcErr, dbErr)
		}
	}()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			mi.GracefulStop <- true
		case <-done:
		}
	}()

	res := Result{Changed: true}
	if err := mi.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			if cerr := ctx.Err(); cerr != nil {
				return res, errors.Join(err, cerr)
			}
			return res, exception.NewBatchError(moduleName, fmt.Sprintf("migration failed (driver: %s, path: %s)", m.cfg.Driver, dir), err, false, false)
		}
		res.Changed = false
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	version, dirty, err := mi.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
	case err != nil:
		return res, exception.NewBatchError(moduleName, "cannot read migration version", err, false, false)
	default:
		res.Version, res.Dirty = version, dirty
	}
	logger.Infof("Schema at version %d (changed: %t).", res.Version, res.Changed)
	return res, nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	logger.Debugf("migrate: "+format, v...)
}

func (migrateLogger) Verbose() bool {
	return false
}
