package schema_test

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/dumpshift/internal/schema"
	dbconfig "github.com/tigerroll/dumpshift/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/dumpshift/pkg/batch/adapter/database/gorm"
	model "github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
)

func migrations() fstest.MapFS {
	return fstest.MapFS{
		"migrations/1_create_usuario.up.sql":   {Data: []byte(`CREATE TABLE usuario (id INTEGER PRIMARY KEY, nombre TEXT);`)},
		"migrations/1_create_usuario.down.sql": {Data: []byte(`DROP TABLE usuario;`)},
		"migrations/2_create_servicio.up.sql":  {Data: []byte(`CREATE TABLE servicio (id INTEGER PRIMARY KEY, precio REAL);`)},
	}
}

func sqliteConfig(t *testing.T) dbconfig.DatabaseConfig {
	cfg := dbconfig.NewDatabaseConfig()
	cfg.Driver = "sqlite"
	cfg.Database = filepath.Join(t.TempDir(), "target.db")
	return cfg
}

func tableCount(t *testing.T, cfg dbconfig.DatabaseConfig, name string) int64 {
	db, err := gormadapter.Open(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	var n int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n).Error)
	return n
}

func TestMigrator_Up(t *testing.T) {
	cfg := sqliteConfig(t)
	m := schema.NewMigrator(cfg, "")
	assert.Equal(t, schema.DefaultMigrationsTable, m.Table())

	res, err := m.Up(context.Background(), migrations(), "migrations")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, uint(2), res.Version)
	assert.False(t, res.Dirty)

	assert.Equal(t, int64(1), tableCount(t, cfg, "usuario"))
	assert.Equal(t, int64(1), tableCount(t, cfg, "servicio"))
	assert.Equal(t, int64(1), tableCount(t, cfg, schema.DefaultMigrationsTable))

	again, err := m.Up(context.Background(), migrations(), "migrations")
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, uint(2), again.Version)
}

func TestMigrator_CustomTable(t *testing.T) {
	cfg := sqliteConfig(t)
	_, err := schema.NewMigrator(cfg, "dumpshift_versions").Up(context.Background(), migrations(), "migrations")
	require.NoError(t, err)
	assert.Equal(t, int64(1), tableCount(t, cfg, "dumpshift_versions"))
}

func TestMigrator_BrokenMigration(t *testing.T) {
	cfg := sqliteConfig(t)
	fsys := fstest.MapFS{
		"m/1_broken.up.sql": {Data: []byte(`CREATE TABLE (;`)},
	}
	_, err := schema.NewMigrator(cfg, "").Up(context.Background(), fsys, "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration failed")
}

func TestMigrator_Errors(t *testing.T) {
	_, err := schema.NewMigrator(sqliteConfig(t), "").Up(context.Background(), migrations(), "missing")
	assert.Error(t, err)

	cfg := dbconfig.NewDatabaseConfig()
	cfg.Driver = "oracle"
	_, err = schema.NewMigrator(cfg, "").Up(context.Background(), migrations(), "migrations")
	assert.Error(t, err)
}

func TestMigrationTasklet(t *testing.T) {
	cfg := sqliteConfig(t)
	tl := schema.NewMigrationTasklet(schema.NewMigrator(cfg, ""), migrations(), "migrations")

	je := model.NewJobExecution("migrate", model.NewJobParameters())
	se := model.NewStepExecution(je, schema.StepName)
	require.NoError(t, tl.SetExecutionContext(context.Background(), se.ExecutionContext))

	status, err := tl.Execute(context.Background(), se)
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusCompleted, status)
	v, ok := se.ExecutionContext.GetInt(schema.KeyVersion)
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	status, err = tl.Execute(context.Background(), se)
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusNoOp, status)
}
