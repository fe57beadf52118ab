package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/medrec/internal/medrec/domain"
	"github.com/aussiebroadwan/medrec/internal/medrec/store"
	"github.com/aussiebroadwan/medrec/pkg/httpx"
	"github.com/aussiebroadwan/medrec/pkg/idx"
	"github.com/aussiebroadwan/medrec/pkg/slogx"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// auditWriteTimeout bounds a single append once it is detached from the
// request.
const auditWriteTimeout = 5 * time.Second

// AuditMetrics receives the outcome of every audit write.
type AuditMetrics interface {
	AuditWrite(success bool)
}

// AuditLogger writes audit entries. A failed write is reported to the caller
// but never undoes or blocks the action being audited.
type AuditLogger struct {
	Store      store.Store
	Metrics    AuditMetrics
	Tracer     trace.Tracer
	TrustProxy bool
	Now        func() time.Time

	failLog *rate.Sometimes
}

func NewAuditLogger(st store.Store, m AuditMetrics, trustProxy bool) *AuditLogger {
	return &AuditLogger{
		Store:      st,
		Metrics:    m,
		Tracer:     otel.Tracer(tracerName),
		TrustProxy: trustProxy,
		Now:        time.Now,
		failLog:    &rate.Sometimes{First: 3, Interval: time.Minute},
	}
}

// Record builds an entry from ev and appends it. The entry is returned even
// when the write fails; the error then wraps ErrAuditWriteFailed. An event
// without an action or entity type is built but not written, and the error
// wraps ErrInvalidRequest.
//
// The write runs on a context detached from ctx's cancellation, so a client
// hanging up mid-request cannot drop the record of what it did.
func (l *AuditLogger) Record(ctx context.Context, ev domain.AuditEvent) (entry domain.AuditEntry, err error) {
	entry = l.build(ctx, ev)
	if ev.Action == "" || ev.EntityType == "" {
		return entry, fmt.Errorf("%w: audit event needs an action and an entity type", ErrInvalidRequest)
	}

	ctx, span := startSpan(ctx, l.Tracer, "AuditLogger.Record", trace.WithAttributes(
		attribute.String("medrec.audit.action", string(entry.Action)),
		attribute.String("medrec.audit.entity_type", string(entry.EntityType)),
		attribute.String("medrec.audit.id", entry.ID),
	))
	defer func() { endSpan(span, err) }()

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	if werr := l.Store.AuditLogs().Append(writeCtx, entry); werr != nil {
		l.observe(false)
		l.sometimes().Do(func() {
			slogx.FromContext(ctx).Error("audit write failed",
				"audit_id", entry.ID,
				"action", entry.Action,
				"entity_type", entry.EntityType,
				"err", werr,
			)
		})
		return entry, fmt.Errorf("%w: %v", ErrAuditWriteFailed, werr)
	}

	l.observe(true)
	return entry, nil
}

func (l *AuditLogger) build(ctx context.Context, ev domain.AuditEvent) domain.AuditEntry {
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}

	at := now().UTC()
	e := domain.AuditEntry{
		ID:           idx.NewAt(at).String(),
		Action:       ev.Action,
		EntityType:   ev.EntityType,
		EntityID:     ev.EntityID,
		EntityName:   ev.EntityName,
		ClinicID:     ev.ClinicID,
		PatientID:    ev.PatientID,
		Description:  ev.Description,
		Changes:      ev.Changes,
		Metadata:     ev.Metadata,
		Success:      ev.Success,
		ErrorMessage: ev.ErrorMessage,
		CreatedAt:    at,
	}

	if a := ev.Actor; a != nil {
		e.ActorID = a.UserID
		e.ActorEmail = a.Email
		e.ActorRole = a.Role
		// Clinic staff actions belong to their clinic unless the event
		// names another one.
		if e.ClinicID == "" && a.Role.IsClinicScoped() {
			e.ClinicID = a.ClinicID
		}
	}

	var (
		info httpx.RequestInfo
		ok   bool
	)
	if ev.Request != nil {
		info, ok = httpx.NewRequestInfo(ev.Request, l.TrustProxy), true
	} else {
		info, ok = httpx.RequestInfoFromContext(ctx)
	}
	if ok {
		e.IPAddress = info.ClientIP
		e.UserAgent = info.UserAgent
		e.RequestPath = info.Path
	}

	return e
}

func (l *AuditLogger) observe(success bool) {
	if l.Metrics != nil {
		l.Metrics.AuditWrite(success)
	}
}

func (l *AuditLogger) sometimes() *rate.Sometimes {
	if l.failLog == nil {
		// Zero-value loggers built as struct literals log every failure.
		return &rate.Sometimes{First: 1}
	}
	return l.failLog
}

// RecordUserAction records action performed by actor on their own account.
func (l *AuditLogger) RecordUserAction(ctx context.Context, actor domain.Principal, action domain.Action, description string, metadata domain.Fields) (domain.AuditEntry, error) {
	return l.Record(ctx, domain.AuditEvent{
		Actor:       &actor,
		Action:      action,
		EntityType:  domain.EntityUser,
		EntityID:    actor.UserID,
		EntityName:  actor.Email,
		Description: description,
		Metadata:    metadata,
		Success:     true,
	})
}

// RecordPatientAction records action performed by actor on a patient record.
// The patient's clinic is recorded so the clinic can see the entry.
func (l *AuditLogger) RecordPatientAction(ctx context.Context, actor domain.Principal, action domain.Action, patient domain.Resource, description string, changes domain.Fields) (domain.AuditEntry, error) {
	return l.Record(ctx, domain.AuditEvent{
		Actor:       &actor,
		Action:      action,
		EntityType:  domain.EntityPatient,
		EntityID:    patient.PatientID,
		ClinicID:    patient.ClinicID,
		PatientID:   patient.PatientID,
		Description: description,
		Changes:     changes,
		Success:     true,
	})
}

// RecordLogin records a login attempt. actor is nil for a failed attempt,
// which is stored anonymously with the attempted email in its metadata.
func (l *AuditLogger) RecordLogin(ctx context.Context, actor *domain.Principal, md domain.LoginMetadata) (domain.AuditEntry, error) {
	ev := domain.AuditEvent{
		Actor:      actor,
		Action:     domain.ActionLogin,
		EntityType: domain.EntityUser,
		Success:    md.Reason == "",
	}
	if actor != nil {
		ev.EntityID = actor.UserID
		ev.EntityName = actor.Email
	}

	if ev.Success {
		ev.Description = "User logged in"
		md.Email = ""
	} else {
		ev.Description = "Failed login attempt"
		ev.ErrorMessage = md.Reason
	}
	ev.Metadata = md.Fields()

	return l.Record(ctx, ev)
}
