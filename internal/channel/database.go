package channel

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pterm/pterm"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/dumpshift/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/dumpshift/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/dumpshift/pkg/batch/adapter/database/gorm/postgres"
	_ "github.com/tigerroll/dumpshift/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

// failureExitCode is reported when the database rejects a script or query.
const failureExitCode = 1

// DatabaseChannel executes SQL over a gorm connection.
type DatabaseChannel struct {
	db     *gorm.DB
	driver string
}

// NewDatabaseChannel opens a connection described by cfg.
func NewDatabaseChannel(cfg dbconfig.DatabaseConfig) (*DatabaseChannel, error) {
	db, err := gormadapter.Open(cfg)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "cannot open database channel", err, false, true)
	}
	return &DatabaseChannel{db: db, driver: cfg.Driver}, nil
}

// NewDatabaseChannelFromDB wraps an existing connection.
func NewDatabaseChannelFromDB(db *gorm.DB) *DatabaseChannel {
	return &DatabaseChannel{db: db, driver: db.Dialector.Name()}
}

// DB exposes the underlying connection, e.g. for schema migrations.
func (c *DatabaseChannel) DB() *gorm.DB {
	return c.db
}

// Name implements Channel.
func (c *DatabaseChannel) Name() string {
	return "database"
}

// ExecScript implements Channel. The whole script is sent in one Exec.
func (c *DatabaseChannel) ExecScript(ctx context.Context, script io.Reader) (*Result, error) {
	body, err := io.ReadAll(script)
	if err != nil {
		return nil, exception.NewIOFailure(moduleName, "cannot read script", err)
	}
	tx := c.db.WithContext(ctx).Exec(string(body))
	if tx.Error != nil {
		return c.failed(tx.Error)
	}
	logger.Debugf("Script executed on %s (%d rows affected).", c.driver, tx.RowsAffected)
	return &Result{Stdout: fmt.Sprintf("%d rows affected\n", tx.RowsAffected)}, nil
}

// Query implements Channel. The rows are rendered as a text table followed by a row count.
func (c *DatabaseChannel) Query(ctx context.Context, query string) (*Result, error) {
	rows, err := c.db.WithContext(ctx).Raw(query).Rows()
	if err != nil {
		return c.failed(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return c.failed(err)
	}
	data := pterm.TableData{columns}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return c.failed(err)
		}
		line := make([]string, len(values))
		for i, v := range values {
			line[i] = formatValue(v)
		}
		data = append(data, line)
	}
	if err := rows.Err(); err != nil {
		return c.failed(err)
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "cannot render query result", err, false, false)
	}
	return &Result{Stdout: fmt.Sprintf("%s\n(%d rows)\n", table, len(data)-1)}, nil
}

func (c *DatabaseChannel) failed(err error) (*Result, error) {
	res := &Result{ExitCode: failureExitCode, Stderr: err.Error()}
	return res, exception.NewChannelExecutionError(moduleName, res.ExitCode, res.Stderr)
}

// Close implements Channel.
func (c *DatabaseChannel) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}
