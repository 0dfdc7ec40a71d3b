// Package app wires the dumpshift components into an fx application.
package app

import (
	"context"
	"os"

	"go.uber.org/fx"

	"github.com/tigerroll/dumpshift/internal/channel"
	"github.com/tigerroll/dumpshift/internal/dialect"
	"github.com/tigerroll/dumpshift/internal/encoding"
	"github.com/tigerroll/dumpshift/internal/orchestrator"
	"github.com/tigerroll/dumpshift/internal/report"
	"github.com/tigerroll/dumpshift/internal/schema"
	"github.com/tigerroll/dumpshift/internal/verify"
	"github.com/tigerroll/dumpshift/pkg/batch/adapter/storage"
	"github.com/tigerroll/dumpshift/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/dumpshift/pkg/batch/adapter/storage/local"
	port "github.com/tigerroll/dumpshift/pkg/batch/core/application/port"
	config "github.com/tigerroll/dumpshift/pkg/batch/core/config"
	repository "github.com/tigerroll/dumpshift/pkg/batch/core/domain/repository"
	"github.com/tigerroll/dumpshift/pkg/batch/core/metrics"
	"github.com/tigerroll/dumpshift/pkg/batch/engine/step/retry"
	metricsinfra "github.com/tigerroll/dumpshift/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/dumpshift/pkg/batch/infrastructure/repository/inmemory"
	sqlrepo "github.com/tigerroll/dumpshift/pkg/batch/infrastructure/repository/sql"
	batchlistener "github.com/tigerroll/dumpshift/pkg/batch/listener"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

// Module provides every component a command can ask for. *config.Config must be supplied.
var Module = fx.Options(
	config.Module,
	storage.Module,
	metricsinfra.Module,
	batchlistener.Module,
	fx.Provide(
		NewJobRepository,
		NewStorageResolver,
		NewEncodingResolver,
		NewRewriter,
		NewChannel,
		NewVerifier,
		NewReportExporter,
		NewOrchestrator,
	),
	fx.Invoke(ApplyLoggingConfig),
)

// ApplyLoggingConfig applies the logging section.
func ApplyLoggingConfig(cfg *config.LoggingConfig) {
	if cfg.Format != "" {
		logger.SetFormat(cfg.Format)
	}
	if cfg.Level != "" {
		logger.SetLogLevel(cfg.Level)
		logger.Debugf("Log level set to: %s", cfg.Level)
	}
}

// NewJobRepository keeps execution history in memory, or in a database when
// repository.type is "sql". The SQL repository is closed on stop.
func NewJobRepository(lc fx.Lifecycle, cfg *config.RepositoryConfig) (repository.JobRepository, error) {
	if cfg.Type != config.RepositoryTypeSQL {
		return inmemory.NewInMemoryJobRepository(), nil
	}
	dc, err := channel.DatabaseConfigFrom(config.ChannelConfig{Type: config.ChannelTypeDatabase, Options: cfg.Options})
	if err != nil {
		return nil, err
	}
	repo, err := sqlrepo.Open(dc)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return repo.Close()
		},
	})
	return repo, nil
}

// NewStorageResolver serves local paths and gs:// references.
func NewStorageResolver(cfg *config.StorageConfig) *storage.Resolver {
	policy := retry.NewRetryPolicy(cfg.Retry.MaxAttempts, cfg.Retry.InitialInterval(), nil)
	return storage.NewResolver(policy, map[string]storage.Factory{
		storage.SchemeFile: local.Factory(cfg.BaseDir),
		storage.SchemeGCS:  gcs.Factory(cfg.GCS),
	})
}

// NewEncodingResolver builds the resolver over the configured candidates.
func NewEncodingResolver(cfg *config.MigrationConfig) (*encoding.Resolver, error) {
	return encoding.NewResolver(cfg.Encodings...)
}

// NewRewriter builds the rewriter selected by migration.rules or migration.preset.
func NewRewriter(cfg *config.MigrationConfig) (*dialect.Rewriter, error) {
	return dialect.ForConfig(cfg.Preset, cfg.Rules)
}

// NewChannel opens the configured execution channel and closes it on stop.
func NewChannel(lc fx.Lifecycle, cfg *config.ChannelConfig) (channel.Channel, error) {
	ch, err := channel.New(*cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return ch.Close()
		},
	})
	logger.Debugf("Execution channel '%s' ready.", ch.Name())
	return ch, nil
}

// NewVerifier builds the reporter counting the verification targets.
func NewVerifier(cfg *config.Config, ch channel.Channel, recorder metrics.MetricRecorder) *verify.Reporter {
	d := cfg.Dumpshift
	targets := verify.TargetsFor(d.Verification.Tables, d.Migration.Tables)
	return verify.NewReporter(ch, targets, verify.NewRetryPolicy(d.Verification.Retry), recorder)
}

// NewReportExporter writes batch reports through the storage resolver.
func NewReportExporter(r *storage.Resolver) (*report.ParquetExporter, error) {
	return report.NewParquetExporter(r, "SNAPPY")
}

// OrchestratorParams are the dependencies of NewOrchestrator.
type OrchestratorParams struct {
	fx.In
	Cfg           *config.Config
	Storage       *storage.Resolver
	Decoder       *encoding.Resolver
	Rewriter      *dialect.Rewriter
	Channel       channel.Channel
	Verifier      *verify.Reporter
	Repository    repository.JobRepository
	Recorder      metrics.MetricRecorder
	Tracer        metrics.Tracer
	JobListeners  []port.JobExecutionListener  `group:"jobListeners"`
	StepListeners []port.StepExecutionListener `group:"stepListeners"`
}

// NewOrchestrator assembles the orchestrator. Verification is left out when disabled.
func NewOrchestrator(p OrchestratorParams) (*orchestrator.Orchestrator, error) {
	d := p.Cfg.Dumpshift
	step, err := SchemaStep(p.Cfg)
	if err != nil {
		return nil, err
	}
	opts := orchestrator.Options{
		Storage:       p.Storage,
		Decoder:       p.Decoder,
		Rewriter:      p.Rewriter,
		Channel:       p.Channel,
		Repository:    p.Repository,
		JobListeners:  p.JobListeners,
		StepListeners: p.StepListeners,
		Recorder:      p.Recorder,
		Tracer:        p.Tracer,
		OutputDir:     d.Migration.OutputDir,
		SchemaStep:    step,
	}
	if !d.Verification.Disabled {
		opts.Verifier = p.Verifier
	}
	return orchestrator.New(opts)
}

// SchemaStep returns the migration tasklet for schema.migrations_dir, or nil when
// there is nothing to migrate. Migrations need the database channel.
func SchemaStep(cfg *config.Config) (port.Tasklet, error) {
	d := cfg.Dumpshift
	if d.Schema.MigrationsDir == "" {
		return nil, nil
	}
	if d.Channel.Type != config.ChannelTypeDatabase {
		logger.Warnf("schema.migrations_dir is set but the channel is %q; migrations are skipped.", d.Channel.Type)
		return nil, nil
	}
	dc, err := channel.DatabaseConfigFrom(d.Channel)
	if err != nil {
		return nil, err
	}
	migrator := schema.NewMigrator(dc, d.Schema.MigrationsTable)
	return schema.NewMigrationTasklet(migrator, os.DirFS(d.Schema.MigrationsDir), "."), nil
}
