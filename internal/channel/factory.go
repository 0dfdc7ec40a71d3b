package channel

import (
	"fmt"

	dbconfig "github.com/tigerroll/dumpshift/pkg/batch/adapter/database/config"
	"github.com/tigerroll/dumpshift/pkg/batch/core/config"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

// New creates the channel selected by cfg.Type, binding cfg.Options over the
// defaults of that channel type.
func New(cfg config.ChannelConfig) (Channel, error) {
	switch cfg.Type {
	case config.ChannelTypeShell, "":
		sc := NewShellConfig()
		if err := configbinder.BindProperties(cfg.Options, &sc); err != nil {
			return nil, exception.NewBatchError(moduleName, "invalid shell channel options", err, false, false)
		}
		logger.Debugf("Shell channel: environment=%q database=%q user=%q", sc.Environment, sc.Database, sc.User)
		ch, err := NewShellChannel(sc)
		if err != nil {
			return nil, err
		}
		return ch, nil
	case config.ChannelTypeDatabase:
		dc, err := DatabaseConfigFrom(cfg)
		if err != nil {
			return nil, err
		}
		logger.Debugf("Database channel: driver=%s host=%s database=%s", dc.Driver, dc.Host, dc.Database)
		ch, err := NewDatabaseChannel(dc)
		if err != nil {
			return nil, err
		}
		return ch, nil
	default:
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("unknown channel type %q", cfg.Type), nil, false, false)
	}
}

// DatabaseConfigFrom binds cfg.Options over the database channel defaults.
func DatabaseConfigFrom(cfg config.ChannelConfig) (dbconfig.DatabaseConfig, error) {
	dc := dbconfig.NewDatabaseConfig()
	if err := configbinder.BindProperties(cfg.Options, &dc); err != nil {
		return dc, exception.NewBatchError(moduleName, "invalid database channel options", err, false, false)
	}
	return dc, nil
}
