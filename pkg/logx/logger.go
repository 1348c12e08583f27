package logx

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Logger is the main logger instance. It renders through zerolog.
type Logger struct {
	config   *Config
	mu       sync.RWMutex
	zl       zerolog.Logger
	exitFunc func(int)
}

// NewLogger creates a new logger with the given config
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Output == nil {
		config.Output = os.Stdout
	}

	l := &Logger{
		config:   config,
		exitFunc: os.Exit,
	}
	l.zl = l.build(config.Output)
	return l
}

func (l *Logger) build(w io.Writer) zerolog.Logger {
	if l.config.Format == FormatConsole {
		w = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    !l.config.EnableColors,
			TimeFormat: l.config.TimeFormat,
		}
	}

	ctx := zerolog.New(w).Level(l.config.Level.zerolog()).With()
	if l.config.EnableTimestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}

// SetLevel sets the log level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Level = level
	l.zl = l.zl.Level(level.zerolog())
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config.Level
}

// SetOutput sets the output writer
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Output = w
	l.zl = l.build(w)
}

// Zerolog returns the underlying zerolog logger for libraries that want it
func (l *Logger) Zerolog() zerolog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.zl
}

// log is the internal logging method
func (l *Logger) log(level Level, msg string, fields Fields, data interface{}, err error) {
	l.mu.RLock()
	zl := l.zl
	enableCaller := l.config.EnableCaller
	l.mu.RUnlock()

	ev := zl.WithLevel(level.zerolog())
	if ev == nil {
		return
	}

	if enableCaller {
		ev = ev.Str(zerolog.CallerFieldName, getCaller(3))
	}
	if len(fields) > 0 {
		ev = ev.Fields(map[string]interface{}(fields))
	}
	if data != nil {
		ev = ev.Interface("data", data)
	}
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg(msg)
}

// WithField creates a new entry with a field
func (l *Logger) WithField(key string, value interface{}) *Entry {
	return newEntry(l).WithField(key, value)
}

// WithFields creates a new entry with fields
func (l *Logger) WithFields(fields Fields) *Entry {
	return newEntry(l).WithFields(fields)
}

// WithError creates a new entry with an error
func (l *Logger) WithError(err error) *Entry {
	return newEntry(l).WithError(err)
}

// WithStruct creates a new entry with structured data
func (l *Logger) WithStruct(data interface{}) *Entry {
	return newEntry(l).WithStruct(data)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(LevelDebug, fmt.Sprintf(format, args...), nil, nil, nil)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(LevelInfo, fmt.Sprintf(format, args...), nil, nil, nil)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(LevelWarn, fmt.Sprintf(format, args...), nil, nil, nil)
}

// exit calls the exit function (useful for testing)
func (l *Logger) exit(code int) {
	l.exitFunc(code)
}

// getCaller returns the file and line number of the caller
func getCaller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "???"
	}

	parts := strings.Split(file, "/")
	file = parts[len(parts)-1]

	return fmt.Sprintf("%s:%d", file, line)
}
