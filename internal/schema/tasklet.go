package schema

import (
	"context"
	"io/fs"

	model "github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
)

// StepName is the name of the step that runs a MigrationTasklet.
const StepName = "schema.migrate"

// KeyVersion is the ExecutionContext key holding the resulting schema version.
const KeyVersion = "schema_version"

// MigrationTasklet runs Migrator.Up as a step.
type MigrationTasklet struct {
	migrator *Migrator
	fsys     fs.FS
	dir      string
	ec       model.ExecutionContext
}

// NewMigrationTasklet creates a tasklet applying the migrations under dir of fsys.
func NewMigrationTasklet(migrator *Migrator, fsys fs.FS, dir string) *MigrationTasklet {
	return &MigrationTasklet{
		migrator: migrator,
		fsys:     fsys,
		dir:      dir,
		ec:       model.NewExecutionContext(),
	}
}

// Execute implements port.Tasklet. Nothing to apply yields ExitStatusNoOp.
func (t *MigrationTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	res, err := t.migrator.Up(ctx, t.fsys, t.dir)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	t.ec.Put(KeyVersion, int(res.Version))
	if !res.Changed {
		return model.ExitStatusNoOp, nil
	}
	return model.ExitStatusCompleted, nil
}

func (t *MigrationTasklet) Close(ctx context.Context) error {
	return nil
}

func (t *MigrationTasklet) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	t.ec = ec
	return nil
}

func (t *MigrationTasklet) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return t.ec, nil
}
