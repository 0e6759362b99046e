package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

var defaultLogger *slog.Logger

type ctxKey struct{}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewHandler builds the handler for a format: "json", "tint" (colored, for local
// development) or anything else for plain text.
func NewHandler(w io.Writer, level, format string) slog.Handler {
	lvl := ParseLevel(level)
	switch strings.ToLower(format) {
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	case "tint":
		return tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: time.Kitchen,
			AddSource:  lvl == slog.LevelDebug,
		})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	}
}

// Initialize sets up the global logger with the specified level and format
func Initialize(level, format string) {
	defaultLogger = slog.New(NewHandler(os.Stdout, level, format))
	slog.SetDefault(defaultLogger)
}

// Get returns the default logger
func Get() *slog.Logger {
	if defaultLogger == nil {
		Initialize("info", "text")
	}
	return defaultLogger
}

// NewContext returns a context whose logger carries the given attributes.
func NewContext(ctx context.Context, args ...any) context.Context {
	return context.WithValue(ctx, ctxKey{}, FromContext(ctx).With(args...))
}

// FromContext returns the request-scoped logger, or the default one.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return Get()
}

func Debug(msg string, args ...any) {
	Get().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Get().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	Get().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	Get().Error(msg, args...)
}

func DebugContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).DebugContext(ctx, msg, args...)
}

func InfoContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).InfoContext(ctx, msg, args...)
}

func WarnContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).WarnContext(ctx, msg, args...)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).ErrorContext(ctx, msg, args...)
}

// trace emits one process-tracking record: fields first, then caller args, then
// the error (if any). Records with an error are raised to failLevel.
func trace(msg string, failLevel slog.Level, err error, fields []any, args []any) {
	attrs := make([]any, 0, len(fields)+len(args)+2)
	attrs = append(attrs, fields...)
	attrs = append(attrs, args...)
	level := slog.LevelDebug
	if err != nil {
		attrs = append(attrs, "error", err)
		level = failLevel
		msg += " failed"
	}
	Get().Log(context.Background(), level, msg, attrs...)
}

// EnterMethod and ExitMethod bracket a service call at debug level.
func EnterMethod(method string, args ...any) {
	trace("method enter", slog.LevelDebug, nil, []any{"method", method, "event", "enter"}, args)
}

func ExitMethod(method string, args ...any) {
	trace("method exit", slog.LevelDebug, nil, []any{"method", method, "event", "exit"}, args)
}

// ExitMethodWithError logs at warn: most service errors are expected domain outcomes.
func ExitMethodWithError(method string, err error, args ...any) {
	trace("method exit", slog.LevelWarn, err, []any{"method", method, "event", "exit"}, args)
}

func DatabaseCall(operation, query string, args ...any) {
	trace("db call", slog.LevelDebug, nil, []any{"operation", operation, "query", query}, args)
}

func DatabaseResult(operation string, rowsAffected int64, err error, args ...any) {
	trace("db result", slog.LevelError, err, []any{"operation", operation, "rows_affected", rowsAffected}, args)
}

func ExternalServiceCall(service, operation string, args ...any) {
	trace("external call", slog.LevelDebug, nil, []any{"service", service, "operation", operation}, args)
}

func ExternalServiceResult(service, operation string, err error, args ...any) {
	trace("external result", slog.LevelError, err, []any{"service", service, "operation", operation}, args)
}
