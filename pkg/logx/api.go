package logx

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
)

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(NewLogger(LoadFromEnv()))
}

// SetDefaultLogger replaces the package level logger
func SetDefaultLogger(logger *Logger) {
	defaultLogger.Store(logger)
}

// GetDefaultLogger returns the package level logger
func GetDefaultLogger() *Logger {
	return defaultLogger.Load()
}

// SetLevel sets the log level for the default logger
func SetLevel(level Level) {
	GetDefaultLogger().SetLevel(level)
}

// SetOutput sets the output for the default logger
func SetOutput(w io.Writer) {
	GetDefaultLogger().SetOutput(w)
}

// ============================================================================
// Simple Logging Functions
// ============================================================================

func Trace(msg string) { GetDefaultLogger().log(LevelTrace, msg, nil, nil, nil) }
func Debug(msg string) { GetDefaultLogger().log(LevelDebug, msg, nil, nil, nil) }
func Info(msg string)  { GetDefaultLogger().log(LevelInfo, msg, nil, nil, nil) }
func Warn(msg string)  { GetDefaultLogger().log(LevelWarn, msg, nil, nil, nil) }
func Error(msg string) { GetDefaultLogger().log(LevelError, msg, nil, nil, nil) }

// Fatal logs a fatal level message and exits
func Fatal(msg string) {
	l := GetDefaultLogger()
	l.log(LevelFatal, msg, nil, nil, nil)
	l.exit(1)
}

// ============================================================================
// Formatted Logging Functions
// ============================================================================

func Debugf(format string, args ...interface{}) {
	GetDefaultLogger().log(LevelDebug, fmt.Sprintf(format, args...), nil, nil, nil)
}

func Infof(format string, args ...interface{}) {
	GetDefaultLogger().log(LevelInfo, fmt.Sprintf(format, args...), nil, nil, nil)
}

func Warnf(format string, args ...interface{}) {
	GetDefaultLogger().log(LevelWarn, fmt.Sprintf(format, args...), nil, nil, nil)
}

func Errorf(format string, args ...interface{}) {
	GetDefaultLogger().log(LevelError, fmt.Sprintf(format, args...), nil, nil, nil)
}

// Fatalf logs a formatted fatal message and exits
func Fatalf(format string, args ...interface{}) {
	l := GetDefaultLogger()
	l.log(LevelFatal, fmt.Sprintf(format, args...), nil, nil, nil)
	l.exit(1)
}

// ============================================================================
// Structured Logging
// ============================================================================

// WithFields creates a new logger entry with fields
func WithFields(fields Fields) *Entry {
	return GetDefaultLogger().WithFields(fields)
}

// WithField creates a new logger entry with a single field
func WithField(key string, value interface{}) *Entry {
	return GetDefaultLogger().WithField(key, value)
}

// WithContext creates a new logger entry carrying request scoped fields
func WithContext(ctx context.Context) *Entry {
	return newEntry(GetDefaultLogger()).WithContext(ctx)
}

// WithError creates a new logger entry with an error
func WithError(err error) *Entry {
	return GetDefaultLogger().WithError(err)
}
