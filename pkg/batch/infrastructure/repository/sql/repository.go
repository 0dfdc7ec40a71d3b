// Package sql provides a GORM implementation of the JobRepository interface, so
// execution history survives the process and can be listed by the history command.
package sql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/dumpshift/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/dumpshift/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/dumpshift/pkg/batch/adapter/database/gorm/postgres"
	_ "github.com/tigerroll/dumpshift/pkg/batch/adapter/database/gorm/sqlite"
	model "github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/dumpshift/pkg/batch/core/domain/repository"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

const moduleName = "SQLJobRepository"

// SQLJobRepository stores executions in the dumpshift_job_execution and
// dumpshift_step_execution tables.
type SQLJobRepository struct {
	db *gorm.DB
}

// NewSQLJobRepository wraps db. The tables must exist; see EnsureSchema.
func NewSQLJobRepository(db *gorm.DB) *SQLJobRepository {
	return &SQLJobRepository{db: db}
}

// Open connects with cfg and creates the tables when they are missing.
func Open(cfg dbconfig.DatabaseConfig) (*SQLJobRepository, error) {
	db, err := gormadapter.Open(cfg)
	if err != nil {
		return nil, err
	}
	r := NewSQLJobRepository(db)
	if err := r.EnsureSchema(); err != nil {
		_ = r.Close()
		return nil, err
	}
	logger.Debugf("SQL job repository ready (driver: %s).", cfg.Driver)
	return r, nil
}

// EnsureSchema creates or extends the repository tables.
func (r *SQLJobRepository) EnsureSchema() error {
	if err := r.db.AutoMigrate(&JobExecutionEntity{}, &StepExecutionEntity{}); err != nil {
		return exception.NewBatchError(moduleName, "failed to create job repository tables", err, false, false)
	}
	return nil
}

// SaveJobExecution inserts a new JobExecution. A duplicate ID is an error.
func (r *SQLJobRepository) SaveJobExecution(ctx context.Context, je *model.JobExecution) error {
	entity, err := fromDomainJobExecution(je)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return exception.NewBatchErrorf(moduleName, "failed to save JobExecution %s", je.ID, false, false, err)
	}
	return nil
}

// UpdateJobExecution overwrites every column of an existing JobExecution.
func (r *SQLJobRepository) UpdateJobExecution(ctx context.Context, je *model.JobExecution) error {
	entity, err := fromDomainJobExecution(je)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&JobExecutionEntity{}).Where("id = ?", je.ID).Select("*").Updates(entity)
	if res.Error != nil {
		return exception.NewBatchErrorf(moduleName, "failed to update JobExecution %s", je.ID, false, false, res.Error)
	}
	if res.RowsAffected == 0 {
		return exception.NewBatchErrorf(moduleName, "JobExecution with ID %s not found for update", je.ID, false, false, repository.ErrJobExecutionNotFound)
	}
	return nil
}

// FindJobExecutionByID loads a JobExecution with its StepExecutions ordered by start time.
func (r *SQLJobRepository) FindJobExecutionByID(ctx context.Context, id string) (*model.JobExecution, error) {
	var entity JobExecutionEntity
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrJobExecutionNotFound
		}
		return nil, exception.NewBatchErrorf(moduleName, "failed to load JobExecution %s", id, false, false, err)
	}
	je, err := toDomainJobExecution(&entity)
	if err != nil {
		return nil, err
	}

	var steps []StepExecutionEntity
	if err := r.db.WithContext(ctx).Where("job_execution_id = ?", id).Order("start_time ASC").Find(&steps).Error; err != nil {
		return nil, exception.NewBatchErrorf(moduleName, "failed to load steps of JobExecution %s", id, false, false, err)
	}
	for i := range steps {
		se, err := toDomainStepExecution(&steps[i])
		if err != nil {
			return nil, err
		}
		se.JobExecution = je
		je.StepExecutions = append(je.StepExecutions, se)
	}
	return je, nil
}

// FindJobExecutionsByName returns every execution of jobName, latest first, without steps.
func (r *SQLJobRepository) FindJobExecutionsByName(ctx context.Context, jobName string) ([]*model.JobExecution, error) {
	var entities []JobExecutionEntity
	if err := r.db.WithContext(ctx).Where("job_name = ?", jobName).Order("create_time DESC").Find(&entities).Error; err != nil {
		return nil, exception.NewBatchErrorf(moduleName, "failed to list executions of %s", jobName, false, false, err)
	}
	out := make([]*model.JobExecution, 0, len(entities))
	for i := range entities {
		je, err := toDomainJobExecution(&entities[i])
		if err != nil {
			return nil, err
		}
		out = append(out, je)
	}
	return out, nil
}

// SaveStepExecution inserts a new StepExecution.
func (r *SQLJobRepository) SaveStepExecution(ctx context.Context, se *model.StepExecution) error {
	entity, err := fromDomainStepExecution(se)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return exception.NewBatchErrorf(moduleName, "failed to save StepExecution %s", se.ID, false, false, err)
	}
	return nil
}

// UpdateStepExecution overwrites every column of an existing StepExecution.
func (r *SQLJobRepository) UpdateStepExecution(ctx context.Context, se *model.StepExecution) error {
	entity, err := fromDomainStepExecution(se)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&StepExecutionEntity{}).Where("id = ?", se.ID).Select("*").Updates(entity)
	if res.Error != nil {
		return exception.NewBatchErrorf(moduleName, "failed to update StepExecution %s", se.ID, false, false, res.Error)
	}
	if res.RowsAffected == 0 {
		return exception.NewBatchErrorf(moduleName, "StepExecution with ID %s not found for update", se.ID, false, false, repository.ErrStepExecutionNotFound)
	}
	return nil
}

// FindStepExecutionByID loads a single StepExecution.
func (r *SQLJobRepository) FindStepExecutionByID(ctx context.Context, id string) (*model.StepExecution, error) {
	var entity StepExecutionEntity
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrStepExecutionNotFound
		}
		return nil, exception.NewBatchErrorf(moduleName, "failed to load StepExecution %s", id, false, false, err)
	}
	return toDomainStepExecution(&entity)
}

// Close closes the underlying connection pool.
func (r *SQLJobRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ repository.JobRepository = (*SQLJobRepository)(nil)
