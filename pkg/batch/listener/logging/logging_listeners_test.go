package logging_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
	"github.com/tigerroll/dumpshift/pkg/batch/listener/logging"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

func TestLoggingListeners(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(zapcore.AddSync(&buf))
	logger.SetLogLevel("INFO")
	t.Cleanup(func() { logger.SetOutput(nil) })

	ctx := context.Background()
	je := model.NewJobExecution("import-tables", model.NewJobParameters())
	se := model.NewStepExecution(je, "servicio.import")
	se.MarkAsStarted()
	se.MarkAsFailed(errors.New("psql exited with status 3"))
	je.MarkAsStarted()
	je.AddFailureException(errors.New("servicio: psql exited with status 3"))
	je.MarkAsCompleted(model.ExitStatusCompletedWithFailures)

	logging.NewLoggingStepListener().AfterStep(ctx, se)
	logging.NewLoggingJobListener().AfterJob(ctx, je)

	out := buf.String()
	assert.Contains(t, out, "StepName: servicio.import, Status: FAILED")
	assert.Contains(t, out, "ExitStatus: COMPLETED_WITH_FAILURES")
	assert.Contains(t, out, "1 failure(s): servicio: psql exited with status 3")
}
