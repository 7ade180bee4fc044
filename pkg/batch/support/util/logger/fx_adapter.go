package logger

import (
	"strings"

	"go.uber.org/fx/fxevent"
)

// FxLoggerAdapter routes fx lifecycle events into the logger facade. Wiring details are
// logged at DEBUG; failures always surface at ERROR with the component that caused them.
type FxLoggerAdapter struct{}

// NewFxLoggerAdapter creates a new instance of FxLoggerAdapter.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{}
}

// LogEvent logs events from Fx.
func (l *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		Debugf("OnStart hook executing: %s", hookName(e.FunctionName))
	case *fxevent.OnStartExecuted:
		logHook("OnStart", e.FunctionName, e.Runtime.String(), e.Err)
	case *fxevent.OnStopExecuting:
		Debugf("OnStop hook executing: %s", hookName(e.FunctionName))
	case *fxevent.OnStopExecuted:
		logHook("OnStop", e.FunctionName, e.Runtime.String(), e.Err)
	case *fxevent.Supplied:
		if e.Err != nil {
			WithFields(Fields{"type": e.TypeName, "module": e.ModuleName}).Errorf("Supply failed: %v", e.Err)
		}
	case *fxevent.Provided:
		if e.Err != nil {
			WithFields(Fields{"constructor": e.ConstructorName, "module": e.ModuleName}).Errorf("Provide failed: %v", e.Err)
			return
		}
		Debugf("Provided %s by %s", strings.Join(e.OutputTypeNames, ", "), hookName(e.ConstructorName))
	case *fxevent.Invoked:
		if e.Err != nil {
			WithFields(Fields{"function": e.FunctionName, "module": e.ModuleName}).Errorf("Invoke failed: %v", e.Err)
		}
	case *fxevent.Stopping:
		Debugf("Stopping on signal: %s", e.Signal)
	case *fxevent.Stopped:
		if e.Err != nil {
			Errorf("Stop failed: %v", e.Err)
		}
	case *fxevent.RollingBack:
		Errorf("Start failed, rolling back: %v", e.StartErr)
	case *fxevent.RolledBack:
		if e.Err != nil {
			Errorf("Rollback failed: %v", e.Err)
		}
	case *fxevent.Started:
		if e.Err != nil {
			Errorf("Start failed: %v", e.Err)
		} else {
			Debugf("Application started.")
		}
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			Errorf("Logger initialization failed: %v", e.Err)
		}
	}
}

func logHook(kind, function, runtime string, err error) {
	fields := Fields{"hook": hookName(function), "runtime": runtime}
	if err != nil {
		WithFields(fields).Errorf("%s hook failed: %v", kind, err)
		return
	}
	WithFields(fields).Debugf("%s hook executed", kind)
}

// hookName strips the closure suffix (".func1") that fx reports for anonymous hooks.
func hookName(funcName string) string {
	if idx := strings.LastIndex(funcName, ".func"); idx != -1 {
		return funcName[:idx]
	}
	return funcName
}
