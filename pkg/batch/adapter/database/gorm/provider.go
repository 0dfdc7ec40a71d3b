// Package gorm opens GORM connections for the database execution channel. Drivers
// register a DialectorFactory from their own package (postgres, sqlite).
package gorm

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	dbconfig "github.com/tigerroll/dumpshift/pkg/batch/adapter/database/config"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

// DialectorFactory generates a gorm.Dialector from a dbconfig.DatabaseConfig.
type DialectorFactory func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error)

var (
	dialectorRegistry = make(map[string]DialectorFactory)
	dialectorMutex    sync.RWMutex
)

// RegisterDialector registers a DialectorFactory for the given driver name.
func RegisterDialector(driver string, factory DialectorFactory) {
	dialectorMutex.Lock()
	defer dialectorMutex.Unlock()
	if _, exists := dialectorRegistry[driver]; exists {
		logger.Warnf("Dialector for driver '%s' already registered. Overwriting.", driver)
	}
	dialectorRegistry[driver] = factory
}

// GetDialectorFactory retrieves the DialectorFactory registered for driver.
func GetDialectorFactory(driver string) (DialectorFactory, error) {
	dialectorMutex.RLock()
	defer dialectorMutex.RUnlock()
	factory, ok := dialectorRegistry[driver]
	if !ok {
		return nil, fmt.Errorf("no dialector registered for database driver: %s", driver)
	}
	return factory, nil
}

// Open establishes a GORM connection for cfg and applies the pool settings.
func Open(cfg dbconfig.DatabaseConfig) (*gorm.DB, error) {
	factory, err := GetDialectorFactory(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dialector, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dialector for %s: %w", cfg.Driver, err)
	}
	return OpenDialector(dialector, cfg)
}

// OpenDialector opens a connection on an already built dialector.
func OpenDialector(dialector gorm.Dialector, cfg dbconfig.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(cfg.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open GORM connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.Pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	}
	if cfg.Pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	}
	if cfg.Pool.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.Pool.ConnMaxLifetimeMinutes) * time.Minute)
	}
	logger.Debugf("Established DB connection (%s).", cfg.Driver)
	return db, nil
}

// NewGormLogger returns a GORM logger writing through the application logger.
func NewGormLogger(level string) gormlogger.Interface {
	var gormLevel gormlogger.LogLevel
	switch strings.ToLower(level) {
	case "error":
		gormLevel = gormlogger.Error
	case "warn":
		gormLevel = gormlogger.Warn
	case "info":
		gormLevel = gormlogger.Info
	default:
		gormLevel = gormlogger.Silent
	}
	return gormlogger.New(gormWriter{}, gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormLevel,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	logger.Debugf(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
