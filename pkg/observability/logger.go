package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/ozxin/nx-admin/pkg/contextkeys"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = map[LogLevel]string{
	DebugLevel: "DEBUG",
	InfoLevel:  "INFO",
	WarnLevel:  "WARN",
	ErrorLevel: "ERROR",
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return levelNames[InfoLevel]
}

func (l LogLevel) slog() slog.Level {
	switch l {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLogLevel parses a level name as used by NX_LOG_LEVEL. Unknown names fall back to InfoLevel.
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Fields are structured key/value pairs attached to log entries
type Fields map[string]interface{}

// Logger writes JSON entries through slog. The console writes them to stderr so they
// never mix with command output.
type Logger struct {
	logger *slog.Logger
	level  LogLevel
}

// NewLogger creates a logger emitting entries at level and above
func NewLogger(level LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stderr
	}
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level.slog()})
	return &Logger{logger: slog.New(handler), level: level}
}

// NopLogger returns a logger that discards everything.
func NopLogger() *Logger {
	return NewLogger(ErrorLevel, io.Discard)
}

// Level returns the minimum level this logger emits.
func (l *Logger) Level() LogLevel {
	return l.level
}

// Enabled reports whether entries at level are written
func (l *Logger) Enabled(level LogLevel) bool {
	return level >= l.level
}

func (l *Logger) with(args ...interface{}) *Logger {
	return &Logger{logger: l.logger.With(args...), level: l.level}
}

// Component tags entries with the console component writing them, e.g. "http" or "session"
func (l *Logger) Component(name string) *Logger {
	return l.with("component", name)
}

// WithField adds a field to the logger context
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.with(key, value)
}

// WithFields adds fields in key order so entries are stable across runs
func (l *Logger) WithFields(fields Fields) *Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]interface{}, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return l.with(args...)
}

// WithError adds an error to the logger context
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.with("error", err.Error())
}

func (l *Logger) Debug(message string) { l.logger.Debug(message) }
func (l *Logger) Info(message string)  { l.logger.Info(message) }
func (l *Logger) Warn(message string)  { l.logger.Warn(message) }
func (l *Logger) Error(message string) { l.logger.Error(message) }

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return contextkeys.WithLogger(ctx, logger)
}

// FromContext returns the context logger, or a discarding one, tagged with the request id,
// the signed-in username and the active trace.
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextkeys.LoggerKey).(*Logger)
	if !ok {
		return NopLogger()
	}

	if requestID := contextkeys.GetRequestID(ctx); requestID != "" {
		logger = logger.with("request_id", requestID)
	}
	if username := contextkeys.GetUserID(ctx); username != "" {
		logger = logger.with("username", username)
	}
	return WithTraceContext(ctx, logger)
}
