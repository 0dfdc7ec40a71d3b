package logger

import (
	"strings"

	"go.uber.org/fx/fxevent"
)

// FxLoggerAdapter routes fx container events through the package logger.
// Wiring chatter goes to DEBUG; only failures are raised above it.
type FxLoggerAdapter struct{}

// NewFxLoggerAdapter creates a new instance of FxLoggerAdapter.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{}
}

// LogEvent logs events from fx.
func (l *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			Errorf("OnStart hook %s failed: %v", shortFuncName(e.FunctionName), e.Err)
			return
		}
		Debugf("OnStart hook %s done in %s", shortFuncName(e.FunctionName), e.Runtime)
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			Errorf("OnStop hook %s failed: %v", shortFuncName(e.FunctionName), e.Err)
			return
		}
		Debugf("OnStop hook %s done in %s", shortFuncName(e.FunctionName), e.Runtime)
	case *fxevent.Supplied:
		if e.Err != nil {
			Errorf("Supplying %s failed: %v", e.TypeName, e.Err)
		}
	case *fxevent.Provided:
		if e.Err != nil {
			Errorf("Provider %s failed: %v", shortFuncName(e.ConstructorName), e.Err)
			return
		}
		for _, t := range e.OutputTypeNames {
			Debugf("Provided: %s", t)
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			Errorf("Invoke %s failed: %v", shortFuncName(e.FunctionName), e.Err)
		}
	case *fxevent.RollingBack:
		Errorf("Start failed, rolling back: %v", e.StartErr)
	case *fxevent.Started:
		if e.Err != nil {
			Errorf("Container start failed: %v", e.Err)
			return
		}
		Debugf("Container started.")
	case *fxevent.Stopped:
		if e.Err != nil {
			Errorf("Container stop failed: %v", e.Err)
		}
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			Errorf("fx logger initialization failed: %v", e.Err)
		}
	}
}

// shortFuncName drops the closure suffix fx appends to anonymous constructors.
func shortFuncName(name string) string {
	if idx := strings.LastIndex(name, ".func"); idx != -1 {
		return name[:idx]
	}
	return name
}
