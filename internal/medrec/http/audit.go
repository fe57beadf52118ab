package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/medrec/internal/medrec/domain"
	"github.com/aussiebroadwan/medrec/internal/medrec/service"
	"github.com/aussiebroadwan/medrec/pkg/httpx"
	"github.com/aussiebroadwan/medrec/pkg/medrecsdk"
	"github.com/aussiebroadwan/medrec/pkg/slogx"
)

type AuditHandler struct {
	Query *service.AuditQueryEngine
	Audit *service.AuditLogger
}

// HandleLogs lists the audit entries visible to the caller.
//
//	@Summary		List audit logs
//	@Description	Returns audit entries newest first. Admins see everything, clinic roles see their clinic and patients see their own user and document activity.
//	@Description	Filters narrow the caller's view and never widen it. Viewing the trail is itself audited.
//	@Tags			Audit
//	@Security		BearerAuth
//	@Produce		json
//	@Param			page		query		int								false	"Page number"	minimum(1)	default(1)
//	@Param			per_page	query		int								false	"Page size"		minimum(1)	maximum(100)	default(20)
//	@Param			action		query		string							false	"Action filter"
//	@Param			entity_type	query		string							false	"Entity type filter"
//	@Param			user_id		query		string							false	"Actor filter"
//	@Param			clinic_id	query		string							false	"Clinic filter"
//	@Param			patient_id	query		string							false	"Patient filter"
//	@Param			date_from	query		string							false	"Inclusive lower bound (RFC 3339 or YYYY-MM-DD)"
//	@Param			date_to		query		string							false	"Inclusive upper bound (RFC 3339 or YYYY-MM-DD)"
//	@Param			success		query		bool							false	"Outcome filter"
//	@Success		200			{object}	medrecsdk.AuditLogListResponse	"One page of entries"
//	@Failure		400			{object}	medrecsdk.ErrorResponse			"Invalid filter or page"
//	@Failure		401			{object}	medrecsdk.ErrorResponse			"Invalid or missing access token"
//	@Failure		403			{object}	medrecsdk.ErrorResponse			"Role has no audit visibility"
//	@Router			/audit/logs [get].
func (h *AuditHandler) HandleLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, _ := service.PrincipalFromContext(ctx)

	page, err := parsePage(r, domain.MaxPerPageLogs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	filter, applied, err := parseAuditFilter(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	entries, total, err := h.Query.List(ctx, p, filter, page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// Written after the query so the listing never contains its own view.
	_, err = h.Audit.Record(ctx, domain.AuditEvent{
		Actor:       &p,
		Action:      domain.ActionView,
		EntityType:  domain.EntitySystem,
		EntityName:  "audit_logs",
		Description: "Viewed audit logs",
		Metadata:    domain.PageMetadata{Page: page.Number, PerPage: page.PerPage, Filters: applied}.Fields(),
		Success:     true,
	})
	if err != nil {
		slogx.FromContext(ctx).Warn("audit view not recorded", "err", err)
	}

	httpx.WriteJSON(w, http.StatusOK, medrecsdk.AuditLogListResponse{
		Logs:    toAuditLogs(entries),
		Total:   total,
		Page:    page.Number,
		PerPage: page.PerPage,
	})
}

// HandleStats summarises the trail.
//
//	@Summary		Audit statistics
//	@Description	Totals for today, this week and this month, the most frequent actions and entity types, and the latest entries. Admin only.
//	@Tags			Audit
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	medrecsdk.AuditStatsResponse	"Statistics"
//	@Failure		401	{object}	medrecsdk.ErrorResponse			"Invalid or missing access token"
//	@Failure		403	{object}	medrecsdk.ErrorResponse			"Not an admin"
//	@Router			/audit/stats [get].
func (h *AuditHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	p, _ := service.PrincipalFromContext(r.Context())

	stats, err := h.Query.Stats(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, medrecsdk.AuditStatsResponse{
		TotalLogs:        stats.Total,
		LogsToday:        stats.Today,
		LogsThisWeek:     stats.ThisWeek,
		LogsThisMonth:    stats.ThisMonth,
		TopActions:       countMap(stats.TopActions),
		TopEntities:      countMap(stats.TopEntities),
		RecentActivities: toAuditLogs(stats.Recent),
	})
}

// HandleMyActivity lists the caller's own actions.
//
//	@Summary		My activity
//	@Description	The caller's own audit entries, newest first.
//	@Tags			Audit
//	@Security		BearerAuth
//	@Produce		json
//	@Param			page		query		int								false	"Page number"	minimum(1)	default(1)
//	@Param			per_page	query		int								false	"Page size"		minimum(1)	maximum(50)	default(20)
//	@Success		200			{object}	medrecsdk.AuditLogListResponse	"One page of entries"
//	@Failure		400			{object}	medrecsdk.ErrorResponse			"Invalid page"
//	@Failure		401			{object}	medrecsdk.ErrorResponse			"Invalid or missing access token"
//	@Router			/audit/my-activity [get].
func (h *AuditHandler) HandleMyActivity(w http.ResponseWriter, r *http.Request) {
	p, _ := service.PrincipalFromContext(r.Context())

	page, err := parsePage(r, domain.MaxPerPageActivity)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	entries, total, err := h.Query.MyActivity(r.Context(), p, page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, medrecsdk.AuditLogListResponse{
		Logs:    toAuditLogs(entries),
		Total:   total,
		Page:    page.Number,
		PerPage: page.PerPage,
	})
}

// HandleTest writes a synthetic entry.
//
//	@Summary		Create a test audit entry
//	@Description	Records a view action attributed to the caller, for checking the audit pipeline end to end.
//	@Tags			Audit
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	medrecsdk.TestAuditResponse	"Entry written"
//	@Failure		401	{object}	medrecsdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		500	{object}	medrecsdk.ErrorResponse		"Entry could not be stored"
//	@Router			/audit/test [post].
func (h *AuditHandler) HandleTest(w http.ResponseWriter, r *http.Request) {
	p, _ := service.PrincipalFromContext(r.Context())

	entry, err := h.Audit.RecordUserAction(r.Context(), p, domain.ActionView,
		"Test audit log entry", domain.TestMetadata{Endpoint: "/audit/test"}.Fields())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, medrecsdk.TestAuditResponse{
		Message:    "Test audit log created",
		AuditLogID: entry.ID,
	})
}

func parsePage(r *http.Request, maxPerPage int) (domain.Page, error) {
	number, ok := httpx.QueryInt(r, "page", 1)
	if !ok {
		return domain.Page{}, fmt.Errorf("%w: page must be an integer", service.ErrInvalidRequest)
	}
	perPage, ok := httpx.QueryInt(r, "per_page", domain.DefaultPerPage)
	if !ok {
		return domain.Page{}, fmt.Errorf("%w: per_page must be an integer", service.ErrInvalidRequest)
	}
	return domain.NewPage(number, perPage, maxPerPage)
}

// parseAuditFilter reads the listing filters. applied echoes the raw values
// that were set, for the view's audit metadata.
func parseAuditFilter(r *http.Request) (f domain.AuditFilter, applied domain.Fields, err error) {
	q := r.URL.Query()
	applied = domain.Fields{}

	if v := q.Get("action"); v != "" {
		if f.Action, err = domain.ParseAction(v); err != nil {
			return f, nil, fmt.Errorf("%w: unknown action %q", service.ErrInvalidRequest, v)
		}
		applied = applied.Set("action", v)
	}
	if v := q.Get("entity_type"); v != "" {
		if f.EntityType, err = domain.ParseEntityType(v); err != nil {
			return f, nil, fmt.Errorf("%w: unknown entity_type %q", service.ErrInvalidRequest, v)
		}
		applied = applied.Set("entity_type", v)
	}
	for _, kv := range []struct {
		name string
		dst  *string
	}{
		{"user_id", &f.UserID},
		{"clinic_id", &f.ClinicID},
		{"patient_id", &f.PatientID},
	} {
		if v := strings.TrimSpace(q.Get(kv.name)); v != "" {
			*kv.dst = v
			applied = applied.Set(kv.name, v)
		}
	}
	if v := q.Get("date_from"); v != "" {
		if f.DateFrom, err = parseDate(v, false); err != nil {
			return f, nil, fmt.Errorf("%w: date_from: %v", service.ErrInvalidRequest, err)
		}
		applied = applied.Set("date_from", v)
	}
	if v := q.Get("date_to"); v != "" {
		if f.DateTo, err = parseDate(v, true); err != nil {
			return f, nil, fmt.Errorf("%w: date_to: %v", service.ErrInvalidRequest, err)
		}
		applied = applied.Set("date_to", v)
	}
	if v := q.Get("success"); v != "" {
		b, perr := strconv.ParseBool(v)
		if perr != nil {
			return f, nil, fmt.Errorf("%w: success must be a boolean", service.ErrInvalidRequest)
		}
		f.Success = &b
		applied = applied.Set("success", b)
	}

	return f, applied, nil
}

var errBadDate = errors.New("expected RFC 3339 timestamp or YYYY-MM-DD")

// parseDate accepts a full timestamp, a zone-less timestamp read as UTC, or a
// bare date. A bare date used as an upper bound covers the whole day.
func parseDate(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, errBadDate
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t.UTC(), nil
}
