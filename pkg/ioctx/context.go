package ioctx

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
)

type stdoutKey struct{}
type stderrKey struct{}
type loggerKey struct{}

func StderrFromContext(ctx context.Context) io.Writer {
	w, ok := ctx.Value(stderrKey{}).(io.Writer)
	if !ok {
		return io.Discard
	}
	return w
}

func StderrToContext(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, stderrKey{}, w)
}

func StdoutFromContext(ctx context.Context) io.Writer {
	w, ok := ctx.Value(stdoutKey{}).(io.Writer)
	if !ok {
		return io.Discard
	}
	return w
}

func StdoutToContext(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, stdoutKey{}, w)
}

// LoggerFromContext returns the logger carried by ctx, or the default
// logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

func LoggerToContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// WithSession tags the context's logger with a fresh session id so that the
// lines of one verification run can be told apart.
func WithSession(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	return LoggerToContext(ctx, LoggerFromContext(ctx).With("session", id)), id
}
