package logger

import (
	"go.uber.org/zap"
)

// Debugger logs tagged values at debug level. It satisfies the injected
// logging capability of the callback adapter.
type Debugger struct {
	logger *zap.Logger
}

// NewDebugger wraps l. The logger is named "callback" so adapter output can be
// filtered from the access log.
func NewDebugger(l *zap.Logger) Debugger {
	return Debugger{logger: l.Named("callback")}
}

// Debug logs value under tag. Values are rendered with zap.Any.
func (d Debugger) Debug(tag string, value any) {
	if ce := d.logger.Check(zap.DebugLevel, tag); ce != nil {
		ce.Write(zap.Any("value", value))
	}
}
