// Package logging contains the leveled, structured logger used throughout pointwalk.
//
// Every message carries key/value context instead of a formatted string:
//
//	logger.Infow("dataset switched", "from", "park", "to", "forest")
package logging

import (
	"sync"
)

// Logger is the logging interface handed to every pointwalk component.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// Sublogger returns a child logger named "<parent>.<subname>". It starts at the parent's
	// level and writes to the same appenders.
	Sublogger(subname string) Logger
	SetLevel(level Level)
	GetLevel() Level
	// AddAppender adds an output to this logger and every logger split off the same root.
	AddAppender(appender Appender)
	Sync() error
}

var (
	globalOnce   sync.Once
	globalLogger Logger
)

// Global returns a process wide logger for code that was handed none.
func Global() Logger {
	globalOnce.Do(func() {
		globalLogger = NewLogger("pointwalk")
	})
	return globalLogger
}

// NewLogger returns a logger that writes Info+ entries to stdout in UTC.
func NewLogger(name string) Logger {
	return newLogger(name, INFO, true, NewStdoutAppender())
}

// NewDebugLogger returns a logger that writes Debug+ entries to stdout in UTC.
func NewDebugLogger(name string) Logger {
	return newLogger(name, DEBUG, true, NewStdoutAppender())
}

// NewBlankLogger returns a Debug+ logger with no outputs. Appenders can be added later.
func NewBlankLogger(name string) Logger {
	return newLogger(name, DEBUG, true)
}
