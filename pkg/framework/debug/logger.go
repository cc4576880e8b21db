// Package debug provides logging and audio inspection helpers for the
// sampler's control context. Nothing in this package may be called from the
// render context.
package debug

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	// LogLevelDebug is for detailed debugging information.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is for general informational messages.
	LogLevelInfo
	// LogLevelWarn is for warning messages.
	LogLevelWarn
	// LogLevelError is for error messages.
	LogLevelError
	// LogLevelOff disables all logging.
	LogLevelOff
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a configuration string such as "debug" or "WARN"
// into a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug, nil
	case "info", "":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	case "off", "none":
		return LogLevelOff, nil
	}
	return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		// Above every level slog emits
		return slog.LevelError + 64
	}
}

// Logger is a leveled, structured logger. Loggers derived with Module or
// With share their parent's level.
type Logger struct {
	base   *slog.Logger
	log    *slog.Logger
	level  *slog.LevelVar
	module string
}

// New creates a logger writing text records to w. A non-empty prefix is
// attached to every record as the module attribute.
func New(w io.Writer, prefix string, level LogLevel) *Logger {
	lv := new(slog.LevelVar)
	lv.Set(level.slogLevel())

	base := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv}))
	l := &Logger{base: base, log: base, level: lv}
	if prefix != "" {
		return l.Module(prefix)
	}
	return l
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, "", LogLevelOff)
}

// Module returns a logger scoped to a named component. Nested modules are
// joined with a dot.
func (l *Logger) Module(name string) *Logger {
	if l.module != "" {
		name = l.module + "." + name
	}
	return &Logger{
		base:   l.base,
		log:    l.base.With("module", name),
		level:  l.level,
		module: name,
	}
}

// With returns a logger that adds args to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		base:   l.base.With(args...),
		log:    l.log.With(args...),
		level:  l.level,
		module: l.module,
	}
}

// SetLevel sets the minimum level. It affects every logger derived from the
// same root.
func (l *Logger) SetLevel(level LogLevel) {
	l.level.Set(level.slogLevel())
}

// Enabled reports whether records at level are emitted.
func (l *Logger) Enabled(level LogLevel) bool {
	return level != LogLevelOff && level.slogLevel() >= l.level.Level()
}

// Slog exposes the underlying slog logger for libraries that accept one.
func (l *Logger) Slog() *slog.Logger {
	return l.log
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) {
	l.log.Debug(msg, args...)
}

// Info logs an informational message.
func (l *Logger) Info(msg string, args ...any) {
	l.log.Info(msg, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) {
	l.log.Warn(msg, args...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) {
	l.log.Error(msg, args...)
}

// ErrorIf logs msg with the error attached when err is not nil.
func (l *Logger) ErrorIf(err error, msg string, args ...any) {
	if err != nil {
		l.log.Error(msg, append(args, "error", err)...)
	}
}

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(New(os.Stderr, "", LogLevelInfo))
}

// Default returns the process-wide logger.
func Default() *Logger {
	return defaultLogger.Load()
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger.Store(l)
	}
}

// SetLevel sets the level of the process-wide logger.
func SetLevel(level LogLevel) {
	Default().SetLevel(level)
}

// Module returns a scoped child of the process-wide logger.
func Module(name string) *Logger {
	return Default().Module(name)
}

// Debug logs to the process-wide logger.
func Debug(msg string, args ...any) {
	Default().Debug(msg, args...)
}

// Info logs to the process-wide logger.
func Info(msg string, args ...any) {
	Default().Info(msg, args...)
}

// Warn logs to the process-wide logger.
func Warn(msg string, args ...any) {
	Default().Warn(msg, args...)
}

// Error logs to the process-wide logger.
func Error(msg string, args ...any) {
	Default().Error(msg, args...)
}
