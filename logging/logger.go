package logging

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// fanout hands entries to the appenders of one logger tree. The root and all of its subloggers
// share a single fanout.
type fanout struct {
	mu        sync.RWMutex
	appenders []Appender
}

func (f *fanout) add(appender Appender) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appenders = append(f.appenders, appender)
}

func (f *fanout) write(entry zapcore.Entry, fields []zapcore.Field) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, appender := range f.appenders {
		if err := appender.Write(entry, fields); err != nil {
			//nolint:errcheck
			fmt.Fprintln(os.Stderr, "failed to write log entry:", err)
		}
	}
}

func (f *fanout) sync() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var err error
	for _, appender := range f.appenders {
		err = multierr.Append(err, appender.Sync())
	}
	return err
}

type logger struct {
	name  string
	level AtomicLevel
	utc   bool
	out   *fanout
}

func newLogger(name string, level Level, utc bool, appenders ...Appender) *logger {
	return &logger{
		name:  name,
		level: NewAtomicLevelAt(level),
		utc:   utc,
		out:   &fanout{appenders: appenders},
	}
}

func (l *logger) Sublogger(subname string) Logger {
	name := subname
	if l.name != "" {
		name = l.name + "." + subname
	}
	return &logger{name: name, level: NewAtomicLevelAt(l.level.Get()), utc: l.utc, out: l.out}
}

func (l *logger) SetLevel(level Level) {
	l.level.Set(level)
}

func (l *logger) GetLevel() Level {
	return l.level.Get()
}

func (l *logger) AddAppender(appender Appender) {
	l.out.add(appender)
}

func (l *logger) Sync() error {
	return l.out.sync()
}

func (l *logger) Debugw(msg string, keysAndValues ...interface{}) {
	l.logw(DEBUG, msg, keysAndValues)
}

func (l *logger) Infow(msg string, keysAndValues ...interface{}) {
	l.logw(INFO, msg, keysAndValues)
}

func (l *logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.logw(WARN, msg, keysAndValues)
}

func (l *logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.logw(ERROR, msg, keysAndValues)
}

// logw must be called directly by the exported level methods for the caller to be right.
func (l *logger) logw(level Level, msg string, keysAndValues []interface{}) {
	if level < l.level.Get() {
		return
	}
	entry := zapcore.Entry{
		Level:      level.AsZap(),
		Time:       time.Now(),
		LoggerName: l.name,
		Message:    msg,
		Caller:     callerOfLogger(),
	}
	if l.utc {
		entry.Time = entry.Time.UTC()
	}
	l.out.write(entry, fieldsOf(keysAndValues))
}

var errUnpairedKey = errors.New("unpaired log key")

// fieldsOf pairs up keys and values in order. A trailing key without a value gets an error as its
// value so the mistake shows up in the output.
func fieldsOf(keysAndValues []interface{}) []zapcore.Field {
	if len(keysAndValues) == 0 {
		return nil
	}
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.Any(key, errUnpairedKey))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

// callerOfLogger finds the code that called Debugw, Infow, Warnw or Errorw.
func callerOfLogger() zapcore.EntryCaller {
	// callerOfLogger, logw, the level method, then the caller
	const skip = 3
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return zapcore.EntryCaller{}
	}
	caller := zapcore.EntryCaller{Defined: true, PC: pc, File: file, Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		caller.Function = fn.Name()
	}
	return caller
}
