package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/tigerroll/dumpshift/internal/app"
	"github.com/tigerroll/dumpshift/internal/orchestrator"
	"github.com/tigerroll/dumpshift/internal/report"
	"github.com/tigerroll/dumpshift/internal/schema"
	"github.com/tigerroll/dumpshift/internal/verify"
	config "github.com/tigerroll/dumpshift/pkg/batch/core/config"
	"github.com/tigerroll/dumpshift/pkg/batch/infrastructure/repository/inmemory"
	sqlrepo "github.com/tigerroll/dumpshift/pkg/batch/infrastructure/repository/sql"
)

func TestModule_Validate(t *testing.T) {
	err := fx.ValidateApp(
		fx.Supply(config.NewConfig()),
		app.Module,
		fx.Invoke(func(*orchestrator.Orchestrator, *report.ParquetExporter, *verify.Reporter) {}),
	)
	require.NoError(t, err)
}

func TestNewJobRepository(t *testing.T) {
	lc := fxtest.NewLifecycle(t)

	mem, err := app.NewJobRepository(lc, &config.RepositoryConfig{Type: config.RepositoryTypeMemory})
	require.NoError(t, err)
	assert.IsType(t, &inmemory.InMemoryJobRepository{}, mem)

	sqlRepo, err := app.NewJobRepository(lc, &config.RepositoryConfig{
		Type:    config.RepositoryTypeSQL,
		Options: map[string]interface{}{"driver": "sqlite", "database": filepath.Join(t.TempDir(), "history.db")},
	})
	require.NoError(t, err)
	assert.IsType(t, &sqlrepo.SQLJobRepository{}, sqlRepo)

	lc.RequireStart()
	lc.RequireStop()

	_, err = app.NewJobRepository(lc, &config.RepositoryConfig{
		Type:    config.RepositoryTypeSQL,
		Options: map[string]interface{}{"driver": "oracle"},
	})
	assert.Error(t, err)
}

func TestSchemaStep(t *testing.T) {
	cfg := config.NewConfig()
	step, err := app.SchemaStep(cfg)
	require.NoError(t, err)
	assert.Nil(t, step)

	cfg.Dumpshift.Schema.MigrationsDir = t.TempDir()
	step, err = app.SchemaStep(cfg)
	require.NoError(t, err)
	assert.Nil(t, step, "shell channel cannot run migrations")

	cfg.Dumpshift.Channel = config.ChannelConfig{
		Type:    config.ChannelTypeDatabase,
		Options: map[string]interface{}{"driver": "sqlite", "database": filepath.Join(t.TempDir(), "x.db")},
	}
	step, err = app.SchemaStep(cfg)
	require.NoError(t, err)
	assert.IsType(t, &schema.MigrationTasklet{}, step)
}

// The manifest is imported into SQLite after the schema step created the table.
func TestModule_ImportTablesWithMigrations(t *testing.T) {
	dir := t.TempDir()
	migrations := filepath.Join(dir, "migrations")
	require.NoError(t, os.MkdirAll(migrations, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(migrations, "1_usuario.up.sql"),
		[]byte(`CREATE TABLE usuario (id INTEGER PRIMARY KEY, nombre TEXT);`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "usuario_data.sql"),
		[]byte("LOCK TABLES `usuario` WRITE;\nINSERT INTO `usuario` VALUES (1,'Ana'),(2,'Luis');\nUNLOCK TABLES;\n"), 0o644))

	cfg := config.NewConfig()
	d := &cfg.Dumpshift
	d.Storage.BaseDir = dir
	d.Migration.OutputDir = "out"
	d.Migration.Tables = []config.TableConfig{{Name: "usuario", Source: "usuario_data.sql"}}
	d.Channel = config.ChannelConfig{
		Type:    config.ChannelTypeDatabase,
		Options: map[string]interface{}{"driver": "sqlite", "database": filepath.Join(dir, "target.db")},
	}
	d.Schema.MigrationsDir = migrations

	var orch *orchestrator.Orchestrator
	fxApp := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(cfg),
		app.Module,
		fx.Populate(&orch),
	)
	fxApp.RequireStart()
	defer fxApp.RequireStop()

	rep, err := orch.Run(context.Background(), d.Migration.Tables)
	require.NoError(t, err)
	require.NoError(t, rep.Err())
	require.Len(t, rep.Succeeded(), 1)
	assert.Equal(t, orchestrator.SchemaStepName, rep.JobExecution.StepExecutions[0].StepName)

	require.True(t, rep.VerificationRan)
	require.NoError(t, rep.VerificationErr)
	assert.Contains(t, rep.Verification.Output, "Usuario")

	_, err = os.Stat(filepath.Join(dir, "out", "usuario_clean.sql"))
	assert.NoError(t, err)
}
