package channel_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"

	"github.com/tigerroll/dumpshift/internal/channel"
	dbconfig "github.com/tigerroll/dumpshift/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/dumpshift/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/dumpshift/pkg/batch/core/config"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
)

func newSQLiteChannel(t *testing.T) channel.Channel {
	t.Helper()
	ch, err := channel.New(config.ChannelConfig{
		Type: config.ChannelTypeDatabase,
		Options: map[string]interface{}{
			"driver":   "sqlite",
			"database": ":memory:",
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })
	return ch
}

func TestDatabaseChannel_ScriptAndQuery(t *testing.T) {
	ch := newSQLiteChannel(t)
	ctx := context.Background()
	assert.Equal(t, "database", ch.Name())

	script := `CREATE TABLE "usuario" ("id" integer, "nombre" text);
INSERT INTO "usuario" VALUES (1,'Ana'),(2,'Luis');`
	res, err := ch.ExecScript(ctx, strings.NewReader(script))
	require.NoError(t, err)
	assert.True(t, res.Succeeded())

	res, err = ch.Query(ctx, "SELECT 'Usuario' AS table_name, COUNT(*) AS row_count FROM usuario")
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "table_name")
	assert.Contains(t, res.Stdout, "Usuario")
	assert.Contains(t, res.Stdout, "(1 rows)")
}

func TestDatabaseChannel_ScriptFailure(t *testing.T) {
	ch := newSQLiteChannel(t)

	res, err := ch.ExecScript(context.Background(), strings.NewReader(`INSERT INTO "missing" VALUES (1);`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrChannelExecution))
	assert.Equal(t, 1, res.ExitCode)
	assert.Contains(t, res.Stderr, "no such table")
}

func TestDatabaseChannel_Sqlmock(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gormadapter.OpenDialector(postgres.New(postgres.Config{Conn: sqlDB}), dbconfig.NewDatabaseConfig())
	require.NoError(t, err)
	ch := channel.NewDatabaseChannelFromDB(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "cita" VALUES (1);`)).
		WillReturnError(errors.New(`ERROR: relation "cita" does not exist (SQLSTATE 42P01)`))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM servicio")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))

	res, err := ch.ExecScript(context.Background(), strings.NewReader(`INSERT INTO "cita" VALUES (1);`))
	require.Error(t, err)
	assert.Contains(t, res.Stderr, "SQLSTATE 42P01")

	res, err = ch.Query(context.Background(), "SELECT COUNT(*) FROM servicio")
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "7")
	assert.Contains(t, res.Stdout, "(1 rows)")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNew_UnknownType(t *testing.T) {
	_, err := channel.New(config.ChannelConfig{Type: "ssh"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown channel type "ssh"`)
}

func TestNew_ShellBindsOptions(t *testing.T) {
	ch, err := channel.New(config.ChannelConfig{
		Type:    config.ChannelTypeShell,
		Options: map[string]interface{}{"environment": "pg", "database": "barber"},
	})
	require.NoError(t, err)

	shell, ok := ch.(*channel.ShellChannel)
	require.True(t, ok)
	assert.Equal(t, []string{"docker", "exec", "-i", "pg", "psql", "-U", "postgres", "-d", "barber", "-f", "-"}, shell.ScriptArgs())
}
