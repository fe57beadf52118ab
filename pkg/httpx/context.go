package httpx

import (
	"context"
	"net/http"
)

type ctxKey string

const (
	CtxKeyUserID      ctxKey = "user_id"
	CtxKeyRequestInfo ctxKey = "request_info"
)

// RequestInfo is the request context recorded alongside audit entries.
type RequestInfo struct {
	ClientIP  string
	UserAgent string
	Method    string
	Path      string
}

// WithRequestInfo stores info in ctx.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, CtxKeyRequestInfo, info)
}

// RequestInfoFromContext returns the info stored by RequestInfoMiddleware.
func RequestInfoFromContext(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(CtxKeyRequestInfo).(RequestInfo)
	return info, ok
}

// NewRequestInfo captures the audit-relevant parts of r.
func NewRequestInfo(r *http.Request, trustProxy bool) RequestInfo {
	return RequestInfo{
		ClientIP:  ClientIP(r, trustProxy),
		UserAgent: r.UserAgent(),
		Method:    r.Method,
		Path:      r.URL.Path,
	}
}

// RequestInfoMiddleware makes the request info available to everything
// downstream, including code that only receives a context.
func RequestInfoMiddleware(trustProxy bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithRequestInfo(r.Context(), NewRequestInfo(r, trustProxy))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUserID records the authenticated subject in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxKeyUserID, userID)
}

// UserIDFromContext returns the subject stored by WithUserID.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}
