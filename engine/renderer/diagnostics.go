package renderer

import (
	"sync/atomic"

	"github.com/charmbracelet/log"
)

type Severity uint8

const (
	SeverityVerbose Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityVerbose:
		return "verbose"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "unknown"
}

// ObjectRef identifies a GPU object attached to a diagnostic message.
type ObjectRef struct {
	Type   string
	Handle uint64
}

// DiagnosticsSink receives messages from the graphics API runtime. It is called
// from driver threads and must not panic.
type DiagnosticsSink interface {
	OnMessage(severity Severity, id string, text string, objects []ObjectRef)
}

// Diagnostics logs validation messages on its own prefixed logger and counts
// warnings and errors. BreakHook, when set, runs on every warning or error;
// wire it to a debugger trap when debugging interactively.
type Diagnostics struct {
	logger    *log.Logger
	emitted   atomic.Uint64
	BreakHook func(severity Severity, id string)
}

func NewDiagnostics(logger *log.Logger) *Diagnostics {
	return &Diagnostics{logger: logger}
}

func (d *Diagnostics) OnMessage(severity Severity, id string, text string, objects []ObjectRef) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("diagnostics sink recovered", "panic", r)
		}
	}()

	kv := []interface{}{"id", id}
	for _, o := range objects {
		kv = append(kv, "object", o.Type, "handle", o.Handle)
	}

	switch severity {
	case SeverityError:
		d.emitted.Add(1)
		d.logger.Error(text, kv...)
	case SeverityWarning:
		d.emitted.Add(1)
		d.logger.Warn(text, kv...)
	case SeverityInfo:
		d.logger.Info(text, kv...)
	default:
		d.logger.Debug(text, kv...)
	}

	if severity >= SeverityWarning && d.BreakHook != nil {
		d.BreakHook(severity, id)
	}
}

// Emitted is the number of warnings and errors received so far.
func (d *Diagnostics) Emitted() uint64 {
	return d.emitted.Load()
}
