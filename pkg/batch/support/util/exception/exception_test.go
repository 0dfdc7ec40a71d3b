package exception_test

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
)

func TestNewBatchError(t *testing.T) {
	originalErr := errors.New("connection refused")
	be := exception.NewBatchError("channel", "failed to start psql", originalErr, false, true)

	assert.Equal(t, "channel", be.Module)
	assert.Equal(t, "failed to start psql", be.Message)
	assert.Equal(t, originalErr, be.Unwrap())
	assert.True(t, be.IsRetryable())
	assert.False(t, be.IsSkippable())
	assert.Equal(t, "[channel] failed to start psql: connection refused", be.Error())
	assert.NotEmpty(t, be.StackTrace)
}

func TestNewBatchErrorf(t *testing.T) {
	be1 := exception.NewBatchErrorf("extract", "keyword %q is empty", "")
	assert.False(t, be1.IsRetryable())
	assert.False(t, be1.IsSkippable())
	assert.Nil(t, be1.Unwrap())
	assert.Equal(t, `[extract] keyword "" is empty`, be1.Error())

	cause := errors.New("io error")
	be2 := exception.NewBatchErrorf("storage", "read %s", "usuario_data.sql", true, false, cause)
	assert.True(t, be2.IsSkippable())
	assert.False(t, be2.IsRetryable())
	assert.Equal(t, cause, be2.Unwrap())
	assert.Equal(t, "read usuario_data.sql", be2.Message)
}

func TestDomainSentinels(t *testing.T) {
	ioErr := exception.NewIOFailure("orchestrator", "cannot read dump", os.ErrNotExist)
	assert.True(t, errors.Is(ioErr, exception.ErrIOFailure))
	assert.True(t, errors.Is(ioErr, os.ErrNotExist))
	assert.True(t, ioErr.IsSkippable())

	decErr := exception.NewDecodeExhausted("encoding", "no candidate decoded input", nil)
	assert.True(t, errors.Is(decErr, exception.ErrDecodeExhausted))
	assert.False(t, errors.Is(decErr, exception.ErrIOFailure))

	chErr := exception.NewChannelExecutionError("channel", 3, "ERROR:  relation \"x\" does not exist\n")
	assert.True(t, errors.Is(chErr, exception.ErrChannelExecution))
	assert.Equal(t, `execution channel exited with status 3 - stderr: ERROR:  relation "x" does not exist`, chErr.Message)

	quiet := exception.NewChannelExecutionError("channel", 1, "  ")
	assert.Equal(t, "execution channel exited with status 1", quiet.Message)
}

func TestIsErrorOfType(t *testing.T) {
	wrapped := fmt.Errorf("table usuario: %w", exception.NewIOFailure("orchestrator", "read", nil))

	assert.True(t, exception.IsErrorOfType(wrapped, exception.IOFailure))
	assert.True(t, exception.IsErrorOfType(wrapped, "exception.BatchError"))
	assert.True(t, exception.IsErrorOfType(wrapped, "table usuario"))
	assert.False(t, exception.IsErrorOfType(wrapped, exception.DecodeExhausted))
	assert.False(t, exception.IsErrorOfType(nil, exception.IOFailure))
	assert.True(t, exception.IsErrorTypeRegistered(exception.NoStatementsFound))
}

func TestExtractErrorMessage(t *testing.T) {
	be := exception.NewBatchError("dialect", "bad rule", errors.New("unknown id"), false, false)
	assert.Equal(t, "bad rule", exception.ExtractErrorMessage(fmt.Errorf("wrap: %w", be)))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
	assert.True(t, exception.IsBatchError(fmt.Errorf("wrap: %w", be)))
	assert.False(t, exception.IsBatchError(errors.New("plain")))
}
