package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/medrec/internal/medrec/metrics"
	"github.com/aussiebroadwan/medrec/internal/medrec/service"
	"github.com/aussiebroadwan/medrec/internal/medrec/store"
	"github.com/aussiebroadwan/medrec/pkg/httpx"
	"github.com/aussiebroadwan/medrec/pkg/ratelimit"
	"github.com/aussiebroadwan/medrec/pkg/slogx"

	_ "github.com/aussiebroadwan/medrec/api/medrec" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// swaggerCSP lets the API explorer load its inline scripts and styles.
const swaggerCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:"

// Pinger is a dependency readiness can check, such as a remote bucket store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig carries the security pipeline settings.
type RouterConfig struct {
	BuildVersion string
	TrustProxy   bool
	Limiter      *ratelimit.Limiter
	Policy       ratelimit.Policy

	// BucketStore is pinged by /readyz when set.
	BucketStore Pinger
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	cfg       RouterConfig
	startTime time.Time
	logger    *slog.Logger
	store     store.Store
	metrics   *metrics.Metrics

	Guard     *service.AccessGuard
	Auth      *service.AuthService
	Audit     *service.AuditLogger
	Query     *service.AuditQueryEngine
	Directory *service.DirectoryService
}

func NewRouter(cfg RouterConfig, st store.Store, m *metrics.Metrics, logger *slog.Logger) *Router {
	r := &Router{
		Mux:       http.NewServeMux(),
		cfg:       cfg,
		startTime: time.Now(),
		logger:    logger,
		store:     st,
		metrics:   m,
	}

	// Outermost first. Rejections from the rate limiter and CSRF check are
	// logged, counted and carry the security headers.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		otelhttp.NewMiddleware("medrec"),
		m.Instrument(r.routeOf),
		httpx.SecurityHeadersMiddleware(map[string]string{"/swagger/": swaggerCSP}),
		httpx.RequestInfoMiddleware(cfg.TrustProxy),
		httpx.RateLimitMiddleware(cfg.Limiter, cfg.Policy, httpx.IPKeyExtractor(cfg.TrustProxy), httpx.RateLimitHooks{
			OnReject:     func(c ratelimit.Class) { m.RateLimitRejected(string(c)) },
			OnStoreError: func(error) { m.RateLimitStoreError() },
			Reject:       rejectWith(service.ErrRateLimitExceeded),
		}),
		httpx.CSRFMiddleware(httpx.CSRFHooks{
			OnReject: m.CSRFRejected,
			Reject:   rejectWith(service.ErrCSRFRejected),
		}, "/auth/"),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerAudit()
	r.registerDirectory()
	r.registerSystem()

	r.Mux.Handle("GET /swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title						medrec API
//	@version					0.1.0
//	@description				Security and audit surface of the medrec record service: registration, password login with HMAC-signed access tokens, and a role-scoped, append-only audit trail.
//	@description
//	@description				Every state-changing request outside /auth/ must carry an Authorization header.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/medrec
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// routeOf names a request by the mux pattern that serves it, keeping metric
// label cardinality bounded.
func (r *Router) routeOf(req *http.Request) string {
	_, pattern := r.Mux.Handler(req)
	return pattern
}

// protected wraps h with authentication and the given requirements. Every
// protected route requires an active account.
func (r *Router) protected(h http.HandlerFunc, reqs ...service.Requirement) http.Handler {
	reqs = append([]service.Requirement{service.AnyActive()}, reqs...)
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.authenticate),
		httpx.AuthzMiddleware(func(ctx context.Context) error {
			p, ok := service.PrincipalFromContext(ctx)
			if !ok {
				return service.ErrUnauthenticated
			}
			return service.Check(p, reqs...)
		}),
	)
}

func (r *Router) authenticate(ctx context.Context, token string) (context.Context, error) {
	p, err := r.Guard.Authenticate(ctx, token)
	if err != nil {
		r.metrics.AuthFailure(authFailureReason(err))
		return ctx, err
	}

	ctx = service.WithPrincipal(ctx, p)
	ctx = httpx.WithUserID(ctx, p.UserID)
	ctx = slogx.Annotate(ctx, "user_id", p.UserID, "role", string(p.Role))
	return ctx, nil
}

func authFailureReason(err error) string {
	switch {
	case errors.Is(err, service.ErrTokenExpired):
		return "expired"
	case errors.Is(err, service.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, service.ErrTokenInvalid):
		return "invalid"
	case errors.Is(err, service.ErrInactiveUser):
		return "inactive"
	case errors.Is(err, service.ErrUnauthenticated):
		return "unknown_subject"
	default:
		return "error"
	}
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Auth: r.Auth, Store: r.store}

	r.Mux.HandleFunc("POST /auth/register", h.HandleRegister)
	r.Mux.HandleFunc("POST /auth/login", h.HandleLogin)
	r.Mux.HandleFunc("POST /auth/login/json", h.HandleLoginJSON)
	r.Mux.Handle("GET /auth/me", r.protected(h.HandleMe))
	r.Mux.Handle("PATCH /users/{id}/active", r.protected(h.HandleSetActive))
}

func (r *Router) registerAudit() {
	h := &AuditHandler{Query: r.Query, Audit: r.Audit}

	r.Mux.Handle("GET /audit/logs", r.protected(h.HandleLogs))
	r.Mux.Handle("GET /audit/stats", r.protected(h.HandleStats))
	r.Mux.Handle("GET /audit/my-activity", r.protected(h.HandleMyActivity))
	r.Mux.Handle("POST /audit/test", r.protected(h.HandleTest))
}

func (r *Router) registerDirectory() {
	h := &DirectoryHandler{Directory: r.Directory}

	r.Mux.Handle("GET /clinics/{id}", r.protected(h.HandleGetClinic))
	r.Mux.Handle("POST /clinics/{id}/members", r.protected(h.HandleAssignStaff))
	r.Mux.Handle("GET /patients/me", r.protected(h.HandleMyPatient))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.cfg.BuildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.cfg.BuildVersion, r.store, r.cfg.BucketStore))
	r.Mux.Handle("GET /metrics", r.metrics.Handler())
}
