package inmemory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
	"github.com/tigerroll/dumpshift/pkg/batch/core/domain/repository"
	"github.com/tigerroll/dumpshift/pkg/batch/infrastructure/repository/inmemory"
)

func TestInMemoryJobRepository_JobAndSteps(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewInMemoryJobRepository()
	defer repo.Close()

	je := model.NewJobExecution("import-tables", model.NewJobParameters())
	require.NoError(t, repo.SaveJobExecution(ctx, je))
	assert.Error(t, repo.SaveJobExecution(ctx, je))

	clean := model.NewStepExecution(je, "usuario.clean")
	imp := model.NewStepExecution(je, "usuario.import")
	imp.StartTime = clean.StartTime.Add(time.Millisecond)
	require.NoError(t, repo.SaveStepExecution(ctx, imp))
	require.NoError(t, repo.SaveStepExecution(ctx, clean))

	found, err := repo.FindJobExecutionByID(ctx, je.ID)
	require.NoError(t, err)
	require.Len(t, found.StepExecutions, 2)
	assert.Equal(t, "usuario.clean", found.StepExecutions[0].StepName)
	assert.Equal(t, "usuario.import", found.StepExecutions[1].StepName)

	clean.BytesWritten = 128
	require.NoError(t, repo.UpdateStepExecution(ctx, clean))
	se, err := repo.FindStepExecutionByID(ctx, clean.ID)
	require.NoError(t, err)
	assert.Equal(t, 128, se.BytesWritten)

	je.MarkAsStarted()
	require.NoError(t, repo.UpdateJobExecution(ctx, je))
	byName, err := repo.FindJobExecutionsByName(ctx, "import-tables")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, model.BatchStatusStarted, byName[0].Status)
}

func TestInMemoryJobRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewInMemoryJobRepository()

	_, err := repo.FindJobExecutionByID(ctx, "missing")
	assert.True(t, errors.Is(err, repository.ErrJobExecutionNotFound))

	_, err = repo.FindStepExecutionByID(ctx, "missing")
	assert.True(t, errors.Is(err, repository.ErrStepExecutionNotFound))

	orphan := model.NewStepExecution(model.NewJobExecution("j", model.NewJobParameters()), "s")
	assert.Error(t, repo.UpdateStepExecution(ctx, orphan))
}
