package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/tigerroll/dumpshift/pkg/batch/adapter/database/config"
	sqlrepo "github.com/tigerroll/dumpshift/pkg/batch/infrastructure/repository/sql"
)

const fullDump = "-- MySQL dump 10.13\n" +
	"/*!40101 SET NAMES utf8mb4 */;\n" +
	"DROP TABLE IF EXISTS `usuario`;\n" +
	"CREATE TABLE `usuario` (\n  `id` int NOT NULL,\n  `nombre` varchar(50) DEFAULT NULL\n) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;\n" +
	"LOCK TABLES `usuario` WRITE;\n" +
	"INSERT INTO `usuario` VALUES (1,'Ana'),(2,'Luis');\n" +
	"UNLOCK TABLES;\n"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	root := NewRootCommand(embeddedConfig, "")
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func configFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "application.yaml")
	writeFile(t, path, fmt.Sprintf("dumpshift:\n  storage:\n    base_dir: %s\n%s", dir, body))
	return path
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "full_dump.sql"), fullDump)
	cfg := configFile(t, dir, "")

	require.NoError(t, execute(t, "--config", cfg, "convert", "full_dump.sql", "postgres_schema.sql"))

	out, err := os.ReadFile(filepath.Join(dir, "postgres_schema.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(out), `CREATE TABLE "usuario" (`)
	assert.Contains(t, string(out), `INSERT INTO "usuario" VALUES (1,'Ana'),(2,'Luis');`)
	assert.NotContains(t, string(out), "ENGINE=")
	assert.NotContains(t, string(out), "LOCK TABLES")
}

func TestConvertCommand_MissingInput(t *testing.T) {
	dir := t.TempDir()
	err := execute(t, "--config", configFile(t, dir, ""), "convert", "missing.sql", "out.sql")
	require.Error(t, err)
	assert.True(t, isReported(err))
}

func TestExtractCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "full_dump.sql"), fullDump)
	cfg := configFile(t, dir, "")

	require.NoError(t, execute(t, "--config", cfg, "extract", "full_dump.sql", "inserts.sql"))

	out, err := os.ReadFile(filepath.Join(dir, "inserts.sql"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "-- "))
	assert.True(t, strings.HasPrefix(lines[1], "-- "))
	assert.Equal(t, "", lines[2])
	assert.Equal(t, `INSERT INTO "usuario" VALUES (1,'Ana'),(2,'Luis');`, lines[3])
}

func TestExtractCommand_NothingFound(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "schema_only.sql"), "CREATE TABLE `x` (`id` int);\n")

	require.NoError(t, execute(t, "--config", configFile(t, dir, ""), "extract", "schema_only.sql", "inserts.sql"))
	_, err := os.Stat(filepath.Join(dir, "inserts.sql"))
	assert.True(t, os.IsNotExist(err))
}

func sqliteConfig(t *testing.T, dir, tables, extra string) string {
	return configFile(t, dir, fmt.Sprintf(`  channel:
    type: database
    options:
      driver: sqlite
      database: %s
  migration:
    tables:
%s
  report:
    parquet_path: report.parquet
%s`, filepath.Join(dir, "target.db"), tables, extra))
}

func TestImportTablesCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "migrations", "1_usuario.up.sql"), "CREATE TABLE usuario (id INTEGER, nombre TEXT);")
	writeFile(t, filepath.Join(dir, "usuario_data.sql"), "LOCK TABLES `usuario` WRITE;\nINSERT INTO `usuario` VALUES (1,'Ana'),(2,'Luis');\nUNLOCK TABLES;\n")
	writeFile(t, filepath.Join(dir, "servicio_data.sql"), "INSERT INTO `servicio` VALUES (1,'Corte');\n")
	cfg := sqliteConfig(t, dir, `      - name: usuario
        source: usuario_data.sql
      - name: servicio
        source: servicio_data.sql`, fmt.Sprintf("  schema:\n    migrations_dir: %s\n", filepath.Join(dir, "migrations")))

	// Only usuario is created by the migration: servicio fails, the batch goes on
	// and the command exits 0 without --fail-on-error.
	require.NoError(t, execute(t, "--config", cfg, "--log-level", "ERROR", "import-tables"))
	_, err := os.Stat(filepath.Join(dir, "report.parquet"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "usuario_clean.sql"))
	assert.NoError(t, err)

	err = execute(t, "--config", cfg, "--log-level", "ERROR", "import-tables", "--fail-on-error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "servicio")
}

func TestMigrateCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "mysql_data_only.sql"), fullDump)
	cfg := sqliteConfig(t, dir, `      - name: usuario
        source: usuario_data.sql`, "")

	require.NoError(t, execute(t, "--config", cfg, "migrate", "mysql_data_only.sql",
		"--preset", "schema", "--cleaned", "postgresql_clean_data.sql"))
	_, err := os.Stat(filepath.Join(dir, "postgresql_clean_data.sql"))
	assert.NoError(t, err)

	// The table exists now, so a second schema import fails on CREATE TABLE.
	err = execute(t, "--config", cfg, "migrate", "mysql_data_only.sql", "--preset", "schema", "--no-verify")
	require.Error(t, err)
	assert.True(t, isReported(err))
}

func TestVerifyCommand_QueryFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	cfg := sqliteConfig(t, dir, `      - name: usuario
        source: usuario_data.sql`, "")

	// usuario does not exist: the query fails but the channel itself worked.
	assert.NoError(t, execute(t, "--config", cfg, "verify"))
}

func TestHistoryCommand(t *testing.T) {
	dir := t.TempDir()
	historyDB := filepath.Join(dir, "history.db")
	writeFile(t, filepath.Join(dir, "migrations", "1_usuario.up.sql"), "CREATE TABLE usuario (id INTEGER, nombre TEXT);")
	writeFile(t, filepath.Join(dir, "usuario_data.sql"), "INSERT INTO `usuario` VALUES (1,'Ana');\n")
	cfg := sqliteConfig(t, dir, `      - name: usuario
        source: usuario_data.sql`, fmt.Sprintf("  schema:\n    migrations_dir: %s\n  repository:\n    type: sql\n    options:\n      driver: sqlite\n      database: %s\n",
		filepath.Join(dir, "migrations"), historyDB))

	require.NoError(t, execute(t, "--config", cfg, "--log-level", "ERROR", "import-tables"))
	require.NoError(t, execute(t, "--config", cfg, "history"))

	hc := dbconfig.NewDatabaseConfig()
	hc.Driver = "sqlite"
	hc.Database = historyDB
	repo, err := sqlrepo.Open(hc)
	require.NoError(t, err)
	defer repo.Close()

	runs, err := repo.FindJobExecutionsByName(context.Background(), "import-tables")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run, err := repo.FindJobExecutionByID(context.Background(), runs[0].ID)
	require.NoError(t, err)
	var steps []string
	for _, se := range run.StepExecutions {
		steps = append(steps, se.StepName)
	}
	assert.Equal(t, []string{"schema.migrate", "usuario.clean", "usuario.import"}, steps)

	require.NoError(t, execute(t, "--config", cfg, "history", "--id", runs[0].ID))
	err = execute(t, "--config", cfg, "history", "--id", "missing")
	require.Error(t, err)
	assert.True(t, isReported(err))
}

func TestHistoryCommand_MemoryRepository(t *testing.T) {
	dir := t.TempDir()
	cfg := configFile(t, dir, "")
	assert.NoError(t, execute(t, "--config", cfg, "history"))
}

func TestRules(t *testing.T) {
	out, err := renderRules()
	require.NoError(t, err)
	assert.Contains(t, out, "backtick-identifiers")
	assert.Contains(t, out, "schema: ")
	assert.Contains(t, out, "data: ")
}

func TestPhoneSamples(t *testing.T) {
	assert.NoError(t, runPhoneSamples())
	assert.NoError(t, execute(t, "phone", "612345678", "12"))
}

func TestDumpName(t *testing.T) {
	assert.Equal(t, "usuario_data", dumpName("dumps/usuario_data.sql"))
	assert.Equal(t, "servicio_data", dumpName("gs://barber/servicio_data.sql"))
	assert.Equal(t, "dump", dumpName("dump"))
}
