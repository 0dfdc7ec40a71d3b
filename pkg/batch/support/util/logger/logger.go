// Package logger provides the leveled logging functions used across dumpshift.
// The package-level API (Debugf, Infof, ...) is backed by a zap SugaredLogger
// so that every component logs through one configurable sink.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel is a type representing the logging level.
type LogLevel int

const (
	// LevelDebug is used for detailed debugging information.
	LevelDebug LogLevel = iota
	// LevelInfo is used for general informational messages.
	LevelInfo
	// LevelWarn is used for potential issues.
	LevelWarn
	// LevelError is used for error messages.
	LevelError
	// LevelFatal is used for errors that terminate the process.
	LevelFatal
)

var zapLevels = map[LogLevel]zapcore.Level{
	LevelDebug: zapcore.DebugLevel,
	LevelInfo:  zapcore.InfoLevel,
	LevelWarn:  zapcore.WarnLevel,
	LevelError: zapcore.ErrorLevel,
	LevelFatal: zapcore.FatalLevel,
}

var (
	mu       sync.RWMutex
	level    = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	format   = "console"
	sink     zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	sugared  *zap.SugaredLogger  = build()
	curLevel                     = LevelInfo
)

// build assembles a SugaredLogger from the current format, sink and level.
// Callers must hold mu when the result is stored.
func build() *zap.SugaredLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var enc zapcore.Encoder
	if format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	return zap.New(zapcore.NewCore(enc, sink, level)).Sugar()
}

// SetLogLevel sets the global log level.
// Valid values are "DEBUG", "INFO", "WARN", "ERROR", "FATAL" (case-insensitive).
// An unknown value falls back to INFO and reports the problem on stderr.
func SetLogLevel(lvl string) {
	var l LogLevel
	switch strings.ToUpper(strings.TrimSpace(lvl)) {
	case "DEBUG", "TRACE":
		l = LevelDebug
	case "INFO":
		l = LevelInfo
	case "WARN", "WARNING":
		l = LevelWarn
	case "ERROR":
		l = LevelError
	case "FATAL":
		l = LevelFatal
	default:
		fmt.Fprintf(os.Stderr, "Unknown log level '%s' specified. Defaulting to INFO level.\n", lvl)
		l = LevelInfo
	}
	mu.Lock()
	curLevel = l
	mu.Unlock()
	level.SetLevel(zapLevels[l])
}

// GetLogLevel returns the currently active log level.
func GetLogLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return curLevel
}

// SetFormat switches the encoder between "console" (default) and "json".
func SetFormat(f string) {
	mu.Lock()
	defer mu.Unlock()
	if strings.EqualFold(f, "json") {
		format = "json"
	} else {
		format = "console"
	}
	sugared = build()
}

// SetOutput redirects log output. Passing nil restores stderr.
func SetOutput(ws zapcore.WriteSyncer) {
	mu.Lock()
	defer mu.Unlock()
	if ws == nil {
		ws = zapcore.Lock(os.Stderr)
	}
	sink = ws
	sugared = build()
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = current().Sync()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugared
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	current().Debugf(format, v...)
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	current().Infof(format, v...)
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	current().Warnf(format, v...)
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	current().Errorf(format, v...)
}

// Fatalf logs a FATAL level message and terminates the process with exit code 1.
func Fatalf(format string, v ...interface{}) {
	current().Fatalf(format, v...)
}
