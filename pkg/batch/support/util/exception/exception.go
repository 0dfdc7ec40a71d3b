// Package exception provides the error types shared by every dumpshift component.
// Errors are wrapped in BatchError so that logs always carry the module that raised them,
// and the domain failure kinds are exposed as sentinels usable with errors.Is.
package exception

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync"
)

// Names under which the domain sentinels are registered.
const (
	DecodeExhausted         = "DecodeExhausted"
	IOFailure               = "IOFailure"
	ChannelExecutionFailure = "ChannelExecutionFailure"
	NoStatementsFound       = "NoStatementsFound"
)

var (
	// ErrDecodeExhausted means no candidate encoding could decode the input.
	ErrDecodeExhausted = errors.New(DecodeExhausted)
	// ErrIOFailure means a file or object could not be read or written.
	ErrIOFailure = errors.New(IOFailure)
	// ErrChannelExecution means the execution channel reported a non-zero exit status.
	ErrChannelExecution = errors.New(ChannelExecutionFailure)
	// ErrNoStatementsFound labels an extraction that matched nothing. It is informational.
	ErrNoStatementsFound = errors.New(NoStatementsFound)
)

var (
	errorRegistry = make(map[string]error)
	registryMutex sync.RWMutex
)

// RegisterErrorType registers a sentinel error under a name so that IsErrorOfType
// can resolve it. It panics on an empty name or a nil prototype.
func RegisterErrorType(name string, prototype error) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if name == "" {
		panic("Error type name cannot be empty")
	}
	if prototype == nil {
		panic(fmt.Sprintf("Cannot register nil prototype for name: %s", name))
	}
	errorRegistry[name] = prototype
}

// IsErrorTypeRegistered checks if the specified error type name is registered.
func IsErrorTypeRegistered(name string) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	_, ok := errorRegistry[name]
	return ok
}

// BatchError is the error type raised by dumpshift components.
// It holds the module where the error occurred, a message, the wrapped original error,
// and flags indicating whether the failing unit may be retried or skipped.
type BatchError struct {
	// Module indicates where the error occurred (e.g., "encoding", "channel", "orchestrator").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	isRetryable bool
	isSkippable bool
	// StackTrace is the stack at the time the error was created.
	StackTrace string
}

// NewBatchError creates a new BatchError.
func NewBatchError(module, message string, originalErr error, isSkippable, isRetryable bool) *BatchError {
	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  captureStack(),
	}
}

// NewBatchErrorf creates a new BatchError from a format string.
// Optional trailing arguments are consumed from the end in this order:
// [originalErr error], then [isRetryable bool], then [isSkippable bool].
// The remaining arguments are passed to fmt.Sprintf.
//
// Example:
//
//	NewBatchErrorf("channel", "psql exited with %d", code, ErrChannelExecution)
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	var originalErr error
	isRetryable := false
	isSkippable := false
	args := a

	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	if len(args) > 0 {
		if b, ok := args[len(args)-1].(bool); ok {
			isRetryable = b
			args = args[:len(args)-1]
		}
	}
	if len(args) > 0 {
		if b, ok := args[len(args)-1].(bool); ok {
			isSkippable = b
			args = args[:len(args)-1]
		}
	}

	return &BatchError{
		Module:      module,
		Message:     fmt.Sprintf(format, args...),
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  captureStack(),
	}
}

// NewIOFailure wraps an I/O error so that errors.Is(err, ErrIOFailure) holds.
// A table whose input cannot be read is skipped by the orchestrator, hence skippable.
func NewIOFailure(module, message string, err error) *BatchError {
	return NewBatchError(module, message, join(ErrIOFailure, err), true, false)
}

// NewDecodeExhausted reports that every candidate encoding failed.
func NewDecodeExhausted(module, message string, err error) *BatchError {
	return NewBatchError(module, message, join(ErrDecodeExhausted, err), true, false)
}

// NewChannelExecutionError reports a non-zero exit from the execution channel.
// diagnostic is the channel's captured error stream and becomes part of the message.
func NewChannelExecutionError(module string, exitCode int, diagnostic string) *BatchError {
	msg := fmt.Sprintf("execution channel exited with status %d", exitCode)
	if d := strings.TrimSpace(diagnostic); d != "" {
		msg = fmt.Sprintf("%s - stderr: %s", msg, d)
	}
	return NewBatchError(module, msg, ErrChannelExecution, true, false)
}

func join(sentinel, err error) error {
	if err == nil {
		return sentinel
	}
	return errors.Join(sentinel, err)
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns whether this error is retryable.
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable returns whether this error is skippable.
func (e *BatchError) IsSkippable() bool {
	return e.isSkippable
}

// IsBatchError reports whether err is, or wraps, a BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}

// IsErrorOfType checks whether err matches a registered sentinel name, contains
// errorTypeName in its message chain, or has a matching Go type name.
func IsErrorOfType(err error, errorTypeName string) bool {
	if err == nil {
		return false
	}

	registryMutex.RLock()
	target, ok := errorRegistry[errorTypeName]
	registryMutex.RUnlock()
	if ok && errors.Is(err, target) {
		return true
	}

	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		if strings.Contains(cur.Error(), errorTypeName) {
			return true
		}
		if t := reflect.TypeOf(cur); t != nil {
			if t.String() == errorTypeName || (t.Kind() == reflect.Ptr && t.Elem().String() == errorTypeName) {
				return true
			}
		}
	}
	return false
}

// ExtractErrorMessage returns the Message of a BatchError, or err.Error() otherwise.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}

func init() {
	RegisterErrorType(DecodeExhausted, ErrDecodeExhausted)
	RegisterErrorType(IOFailure, ErrIOFailure)
	RegisterErrorType(ChannelExecutionFailure, ErrChannelExecution)
	RegisterErrorType(NoStatementsFound, ErrNoStatementsFound)
}
