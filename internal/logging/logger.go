package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

// LogLevel represents the severity of a log message
type LogLevel string

const (
	LogLevelDebug    LogLevel = "DEBUG"
	LogLevelInfo     LogLevel = "INFO"
	LogLevelWarn     LogLevel = "WARNING"
	LogLevelError    LogLevel = "ERROR"
	LogLevelCritical LogLevel = "CRITICAL"
)

// LevelCritical sits above slog.LevelError; slog has no built-in equivalent.
const LevelCritical = slog.Level(12)

// ParseLevel converts a configuration string into a LogLevel.
// WARN is accepted as an alias for WARNING, FATAL for CRITICAL.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LogLevelDebug, nil
	case "INFO", "":
		return LogLevelInfo, nil
	case "WARNING", "WARN":
		return LogLevelWarn, nil
	case "ERROR":
		return LogLevelError, nil
	case "CRITICAL", "FATAL":
		return LogLevelCritical, nil
	}
	return "", fmt.Errorf("unknown log level %q", s)
}

// Slog maps the level onto the slog scale
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	case LogLevelCritical:
		return LevelCritical
	default:
		return slog.LevelInfo
	}
}

// Options configures the root logger
type Options struct {
	Writer  io.Writer // Console output, defaults to os.Stderr
	Level   LogLevel
	NoColor bool
}

// sink is shared by a root logger and every component logger derived from it
type sink struct {
	mu       sync.RWMutex
	level    slog.LevelVar
	handlers []slog.Handler
}

// Logger provides component-scoped structured logging on top of slog
type Logger struct {
	component string
	sink      *sink
}

// New creates a root logger writing colored output through tint
func New(component string, opts Options) *Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	s := &sink{}
	s.level.Set(opts.Level.Slog())
	s.handlers = []slog.Handler{
		tint.NewHandler(w, &tint.Options{
			Level:       &s.level,
			TimeFormat:  "15:04:05.000",
			NoColor:     opts.NoColor,
			ReplaceAttr: tintLevelNames,
		}),
	}

	return &Logger{component: component, sink: s}
}

// NewLogger creates a logger for a specific component with default console settings
func NewLogger(component string) *Logger {
	return New(component, Options{Level: LogLevelInfo})
}

// Discard returns a logger that drops everything, for tests
func Discard() *Logger {
	return &Logger{component: "discard", sink: &sink{}}
}

// Named derives a logger for another component sharing outputs and level
func (l *Logger) Named(component string) *Logger {
	return &Logger{component: component, sink: l.sink}
}

// Component returns the component name attached to every entry
func (l *Logger) Component() string {
	return l.component
}

// SetMinLevel sets the minimum log level to output
func (l *Logger) SetMinLevel(level LogLevel) *Logger {
	l.sink.level.Set(level.Slog())
	return l
}

// AddOutput adds a plain-text output writer for logs, e.g. a log file
func (l *Logger) AddOutput(w io.Writer) *Logger {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.handlers = append(l.sink.handlers, slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       &l.sink.level,
		ReplaceAttr: textLevelNames,
	}))
	return l
}

func (l *Logger) log(level slog.Level, message string, err error, fields map[string]interface{}) {
	ctx := context.Background()

	l.sink.mu.RLock()
	handlers := l.sink.handlers
	l.sink.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	record := slog.NewRecord(time.Now(), level, message, 0)
	record.AddAttrs(slog.String("component", l.component))
	if err != nil {
		record.AddAttrs(tint.Err(err))
	}
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			record.AddAttrs(slog.Any(k, fields[k]))
		}
	}

	for _, h := range handlers {
		if h.Enabled(ctx, level) {
			_ = h.Handle(ctx, record.Clone())
		}
	}
}

// Debug logs a debug message
func (l *Logger) Debug(message string) {
	l.log(slog.LevelDebug, message, nil, nil)
}

// DebugWithContext logs a debug message with context
func (l *Logger) DebugWithContext(message string, context map[string]interface{}) {
	l.log(slog.LevelDebug, message, nil, context)
}

// Info logs an info message
func (l *Logger) Info(message string) {
	l.log(slog.LevelInfo, message, nil, nil)
}

// InfoWithContext logs an info message with context
func (l *Logger) InfoWithContext(message string, context map[string]interface{}) {
	l.log(slog.LevelInfo, message, nil, context)
}

// Warn logs a warning message
func (l *Logger) Warn(message string) {
	l.log(slog.LevelWarn, message, nil, nil)
}

// WarnWithContext logs a warning message with context
func (l *Logger) WarnWithContext(message string, context map[string]interface{}) {
	l.log(slog.LevelWarn, message, nil, context)
}

// Error logs an error message
func (l *Logger) Error(message string, err error) {
	l.log(slog.LevelError, message, err, nil)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(message string, err error, context map[string]interface{}) {
	l.log(slog.LevelError, message, err, context)
}

// Critical logs a critical error message
func (l *Logger) Critical(message string, err error) {
	l.log(LevelCritical, message, err, nil)
}

// CriticalWithContext logs a critical error message with context
func (l *Logger) CriticalWithContext(message string, err error, context map[string]interface{}) {
	l.log(LevelCritical, message, err, context)
}

// WithContext returns a logger that includes the given context on every entry
func (l *Logger) WithContext(context map[string]interface{}) *ContextLogger {
	return &ContextLogger{
		logger:  l,
		context: context,
	}
}

// ContextLogger is a logger with pre-set context
type ContextLogger struct {
	logger  *Logger
	context map[string]interface{}
}

// Debug logs a debug message with pre-set context
func (cl *ContextLogger) Debug(message string) {
	cl.logger.log(slog.LevelDebug, message, nil, cl.context)
}

// Info logs an info message with pre-set context
func (cl *ContextLogger) Info(message string) {
	cl.logger.log(slog.LevelInfo, message, nil, cl.context)
}

// Warn logs a warning message with pre-set context
func (cl *ContextLogger) Warn(message string) {
	cl.logger.log(slog.LevelWarn, message, nil, cl.context)
}

// Error logs an error message with pre-set context
func (cl *ContextLogger) Error(message string, err error) {
	cl.logger.log(slog.LevelError, message, err, cl.context)
}

// Critical logs a critical message with pre-set context
func (cl *ContextLogger) Critical(message string, err error) {
	cl.logger.log(LevelCritical, message, err, cl.context)
}

func tintLevelNames(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok && level >= LevelCritical {
			a.Value = slog.StringValue("CRT")
		}
	}
	return a
}

func textLevelNames(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(string(levelName(level)))
		}
	}
	return a
}

func levelName(level slog.Level) LogLevel {
	switch {
	case level >= LevelCritical:
		return LogLevelCritical
	case level >= slog.LevelError:
		return LogLevelError
	case level >= slog.LevelWarn:
		return LogLevelWarn
	case level >= slog.LevelInfo:
		return LogLevelInfo
	default:
		return LogLevelDebug
	}
}
