package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// NewJSONLogger creates a new JSON logger
func NewJSONLogger(writer io.Writer, level Level) *JSONLogger {
	return &JSONLogger{
		core:   &core{writer: writer, level: level},
		fields: make([]Field, 0),
	}
}

// New builds a logger from options. The returned closer releases the log
// file, if one was opened; it is never nil.
func New(opts Options) (Logger, io.Closer, error) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	var closer io.Closer = nopCloser{}
	if opts.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(out, f)
		closer = f
	}

	switch opts.Format {
	case FormatConsole:
		return NewConsoleLogger(out, opts.Level), closer, nil
	case FormatJSON, "":
		return NewJSONLogger(out, opts.Level), closer, nil
	default:
		closer.Close()
		return nil, nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// mergeFields flattens pre-set and per-call fields; per-call fields win.
func mergeFields(preset, fields []Field) map[string]any {
	if len(preset)+len(fields) == 0 {
		return nil
	}
	fieldMap := make(map[string]any, len(preset)+len(fields))
	for _, f := range preset {
		fieldMap[f.Key] = f.Value
	}
	for _, f := range fields {
		fieldMap[f.Key] = f.Value
	}
	return fieldMap
}

func (c *core) enabled(level Level) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return level >= c.level
}

func (c *core) write(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Write(data)
}

func (c *core) setLevel(level Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.level = level
}

func (c *core) getLevel() Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

func (l *JSONLogger) log(level Level, msg string, fields ...Field) {
	if !l.core.enabled(level) {
		return
	}

	entry := LogEntry{
		Time:    time.Now().Format(time.RFC3339Nano),
		Level:   level.String(),
		Message: msg,
		Fields:  mergeFields(l.fields, fields),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		l.core.write([]byte(fmt.Sprintf("[ERROR] Failed to marshal log entry: %v\n", err)))
		return
	}

	l.core.write(append(data, '\n'))
}

// Debug logs a debug-level message
func (l *JSONLogger) Debug(msg string, fields ...Field) {
	l.log(DebugLevel, msg, fields...)
}

// Info logs an info-level message
func (l *JSONLogger) Info(msg string, fields ...Field) {
	l.log(InfoLevel, msg, fields...)
}

// Warn logs a warning-level message
func (l *JSONLogger) Warn(msg string, fields ...Field) {
	l.log(WarnLevel, msg, fields...)
}

// Error logs an error-level message
func (l *JSONLogger) Error(msg string, fields ...Field) {
	l.log(ErrorLevel, msg, fields...)
}

// With creates a child logger with the given fields pre-set
func (l *JSONLogger) With(fields ...Field) Logger {
	newFields := make([]Field, len(l.fields)+len(fields))
	copy(newFields, l.fields)
	copy(newFields[len(l.fields):], fields)

	return &JSONLogger{core: l.core, fields: newFields}
}

// SetLevel sets the minimum log level
func (l *JSONLogger) SetLevel(level Level) {
	l.core.setLevel(level)
}

// GetLevel returns the current log level
func (l *JSONLogger) GetLevel() Level {
	return l.core.getLevel()
}

// Global default logger
var (
	defaultLogger Logger
	defaultMu     sync.Mutex
)

// DefaultLogger returns the global default logger. LOG_LEVEL and LOG_FORMAT
// are honored on first use.
func DefaultLogger() Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultLogger == nil {
		level := InfoLevel
		if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
			level = ParseLevel(levelStr)
		}
		if Format(os.Getenv("LOG_FORMAT")) == FormatConsole {
			defaultLogger = NewConsoleLogger(os.Stdout, level)
		} else {
			defaultLogger = NewJSONLogger(os.Stdout, level)
		}
	}
	return defaultLogger
}

// SetDefaultLogger sets the global default logger
func SetDefaultLogger(logger Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// Info logs an info-level message using the default logger
func Info(msg string, fields ...Field) {
	DefaultLogger().Info(msg, fields...)
}

// Warn logs a warning-level message using the default logger
func Warn(msg string, fields ...Field) {
	DefaultLogger().Warn(msg, fields...)
}

// ErrorLog logs an error-level message using the default logger
// Named ErrorLog to avoid conflict with Error field constructor
func ErrorLog(msg string, fields ...Field) {
	DefaultLogger().Error(msg, fields...)
}

// With creates a child logger with the given fields pre-set using the default logger
func With(fields ...Field) Logger {
	return DefaultLogger().With(fields...)
}
