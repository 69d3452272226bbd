package internal

import (
	"log"
	"os"
	"strings"
)

// LogLevel represents logging verbosity.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// Logger provides leveled logging with an optional component prefix.
type Logger struct {
	level     LogLevel
	component string
}

// NewLogger creates a logger with an explicit level.
func NewLogger(level LogLevel) *Logger {
	return &Logger{level: level}
}

// NewDefaultLogger creates a logger from the LOG_LEVEL environment variable.
func NewDefaultLogger() *Logger {
	level := LogLevelInfo
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "ERROR":
		level = LogLevelError
	case "WARN":
		level = LogLevelWarn
	case "INFO":
		level = LogLevelInfo
	case "DEBUG":
		level = LogLevelDebug
	}
	return &Logger{level: level}
}

// WithComponent returns a logger that prefixes messages with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{level: l.level, component: name}
}

// GetLevel returns the current log level.
func (l *Logger) GetLevel() LogLevel { return l.level }

func (l *Logger) logf(level LogLevel, tag, format string, args ...any) {
	if l.level < level {
		return
	}
	if l.component != "" {
		tag = tag + " " + l.component + ":"
	}
	log.Printf(tag+" "+format, args...)
}

// Error logs error messages.
func (l *Logger) Error(format string, args ...any) {
	l.logf(LogLevelError, "[ERROR]", format, args...)
}

// Warn logs warning messages.
func (l *Logger) Warn(format string, args ...any) {
	l.logf(LogLevelWarn, "[WARN]", format, args...)
}

// Info logs info messages.
func (l *Logger) Info(format string, args ...any) {
	l.logf(LogLevelInfo, "[INFO]", format, args...)
}

// Debug logs debug messages.
func (l *Logger) Debug(format string, args ...any) {
	l.logf(LogLevelDebug, "[DEBUG]", format, args...)
}

// DefaultLogger is the process-wide logger instance.
var DefaultLogger = NewDefaultLogger()
