package slogx

import (
	"context"
	"log/slog"
	"sync"
)

type (
	loggerKey struct{}
	attrsKey  struct{}
)

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the request-scoped logger, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// lateAttrs collects attributes learned after HTTPMiddleware built the access
// logger, such as the authenticated user.
type lateAttrs struct {
	mu   sync.Mutex
	args []any
}

func (a *lateAttrs) add(args ...any) {
	a.mu.Lock()
	a.args = append(a.args, args...)
	a.mu.Unlock()
}

func (a *lateAttrs) snapshot() []any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]any(nil), a.args...)
}

// Annotate returns ctx with its logger extended by args. Within
// HTTPMiddleware the same args also land on the request's http_request line.
func Annotate(ctx context.Context, args ...any) context.Context {
	if la, ok := ctx.Value(attrsKey{}).(*lateAttrs); ok {
		la.add(args...)
	}
	return WithContext(ctx, FromContext(ctx).With(args...))
}
