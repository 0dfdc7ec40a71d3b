package logger_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	logger.SetOutput(zapcore.AddSync(buf))
	t.Cleanup(func() {
		logger.SetOutput(nil)
		logger.SetLogLevel("INFO")
		logger.SetFormat("console")
	})
	return buf
}

func TestSetLogLevel_FiltersBelowThreshold(t *testing.T) {
	buf := captureLogs(t)
	logger.SetLogLevel("warn")

	logger.Infof("hidden %d", 1)
	logger.Warnf("visible %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "visible 2")
	assert.Contains(t, out, "WARN")
	assert.Equal(t, logger.LevelWarn, logger.GetLogLevel())
}

func TestSetLogLevel_UnknownFallsBackToInfo(t *testing.T) {
	captureLogs(t)
	logger.SetLogLevel("verbose")
	assert.Equal(t, logger.LevelInfo, logger.GetLogLevel())
}

func TestSetFormat_JSON(t *testing.T) {
	buf := captureLogs(t)
	logger.SetFormat("json")
	logger.SetOutput(zapcore.AddSync(buf))

	logger.Errorf("table %s failed", "usuario")

	assert.Contains(t, buf.String(), `"msg":"table usuario failed"`)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}
