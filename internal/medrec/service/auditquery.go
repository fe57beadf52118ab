package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/medrec/internal/medrec/domain"
	"github.com/aussiebroadwan/medrec/internal/medrec/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	StatsTopN   = 10
	StatsRecent = 10
)

// AuditQueryEngine answers audit trail queries under the caller's
// visibility. Scope is always applied in the store query, before paging, so
// totals never count rows the caller cannot see.
type AuditQueryEngine struct {
	Store  store.Store
	Tracer trace.Tracer
	Now    func() time.Time
}

func NewAuditQueryEngine(st store.Store) *AuditQueryEngine {
	return &AuditQueryEngine{Store: st, Tracer: otel.Tracer(tracerName), Now: time.Now}
}

// List returns one page of the entries p may see that match f, newest first,
// and the total across all pages.
func (q *AuditQueryEngine) List(ctx context.Context, p domain.Principal, f domain.AuditFilter, page domain.Page) (entries []domain.AuditEntry, total int64, err error) {
	ctx, span := startSpan(ctx, q.Tracer, "AuditQueryEngine.List", trace.WithAttributes(
		attribute.String("medrec.role", string(p.Role)),
		attribute.Int("medrec.page", page.Number),
	))
	defer func() { endSpan(span, err) }()

	scope, err := domain.VisibilityFor(p)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	return q.page(ctx, scope, f, page)
}

// MyActivity returns p's own actions.
func (q *AuditQueryEngine) MyActivity(ctx context.Context, p domain.Principal, page domain.Page) (entries []domain.AuditEntry, total int64, err error) {
	ctx, span := startSpan(ctx, q.Tracer, "AuditQueryEngine.MyActivity")
	defer func() { endSpan(span, err) }()

	if p.UserID == "" {
		return nil, 0, ErrUnauthenticated
	}
	return q.page(ctx, domain.Scope{ActorID: p.UserID}, domain.AuditFilter{}, page)
}

func (q *AuditQueryEngine) page(ctx context.Context, scope domain.Scope, f domain.AuditFilter, page domain.Page) ([]domain.AuditEntry, int64, error) {
	logs := q.Store.AuditLogs()

	total, err := logs.Count(ctx, scope, f)
	if err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}
	entries, err := logs.Query(ctx, scope, f, page)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit logs: %w", err)
	}
	return entries, total, nil
}

// Stats summarises the whole trail. Only admins may call it.
//
// "Today" and "this month" start at local midnight of the clock's location;
// "this week" is the trailing seven days.
func (q *AuditQueryEngine) Stats(ctx context.Context, p domain.Principal) (stats domain.AuditStats, err error) {
	ctx, span := startSpan(ctx, q.Tracer, "AuditQueryEngine.Stats")
	defer func() { endSpan(span, err) }()

	if err := Check(p, AnyActive(), RequireRole(domain.RoleAdmin)); err != nil {
		return domain.AuditStats{}, err
	}

	now := time.Now()
	if q.Now != nil {
		now = q.Now()
	}
	y, m, d := now.Date()
	todayStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	weekStart := now.AddDate(0, 0, -7)
	monthStart := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())

	all := domain.Scope{Unrestricted: true}
	logs := q.Store.AuditLogs()

	if stats.Total, err = logs.Count(ctx, all, domain.AuditFilter{}); err != nil {
		return domain.AuditStats{}, fmt.Errorf("count total: %w", err)
	}
	if stats.Today, err = logs.CountSince(ctx, all, todayStart); err != nil {
		return domain.AuditStats{}, fmt.Errorf("count today: %w", err)
	}
	if stats.ThisWeek, err = logs.CountSince(ctx, all, weekStart); err != nil {
		return domain.AuditStats{}, fmt.Errorf("count week: %w", err)
	}
	if stats.ThisMonth, err = logs.CountSince(ctx, all, monthStart); err != nil {
		return domain.AuditStats{}, fmt.Errorf("count month: %w", err)
	}
	if stats.TopActions, err = logs.TopActions(ctx, all, StatsTopN); err != nil {
		return domain.AuditStats{}, fmt.Errorf("top actions: %w", err)
	}
	if stats.TopEntities, err = logs.TopEntityTypes(ctx, all, StatsTopN); err != nil {
		return domain.AuditStats{}, fmt.Errorf("top entities: %w", err)
	}
	if stats.Recent, err = logs.Recent(ctx, all, StatsRecent); err != nil {
		return domain.AuditStats{}, fmt.Errorf("recent: %w", err)
	}

	return stats, nil
}
