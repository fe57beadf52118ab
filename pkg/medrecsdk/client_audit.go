package medrecsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ListAuditLogs returns the entries visible to the caller.
func (c *Client) ListAuditLogs(ctx context.Context, q AuditLogQuery) (*AuditLogListResponse, error) {
	path := "/audit/logs"
	if v := q.values(); len(v) > 0 {
		path += "?" + v.Encode()
	}

	var out AuditLogListResponse
	if err := c.call(ctx, http.MethodGet, path, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuditStats returns trail statistics. Admin only.
func (c *Client) AuditStats(ctx context.Context) (*AuditStatsResponse, error) {
	var out AuditStatsResponse
	if err := c.call(ctx, http.MethodGet, "/audit/stats", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyActivity returns the caller's own actions. Zero page or perPage use the
// server defaults.
func (c *Client) MyActivity(ctx context.Context, page, perPage int) (*AuditLogListResponse, error) {
	v := url.Values{}
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		v.Set("per_page", strconv.Itoa(perPage))
	}
	path := "/audit/my-activity"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var out AuditLogListResponse
	if err := c.call(ctx, http.MethodGet, path, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTestAuditLog writes a synthetic entry attributed to the caller.
func (c *Client) CreateTestAuditLog(ctx context.Context) (*TestAuditResponse, error) {
	var out TestAuditResponse
	if err := c.call(ctx, http.MethodPost, "/audit/test", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (q AuditLogQuery) values() url.Values {
	v := url.Values{}
	setInt := func(k string, n int) {
		if n > 0 {
			v.Set(k, strconv.Itoa(n))
		}
	}
	setStr := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	setTime := func(k string, t time.Time) {
		if !t.IsZero() {
			v.Set(k, t.UTC().Format(time.RFC3339Nano))
		}
	}

	setInt("page", q.Page)
	setInt("per_page", q.PerPage)
	setStr("action", q.Action)
	setStr("entity_type", q.EntityType)
	setStr("user_id", q.UserID)
	setStr("clinic_id", q.ClinicID)
	setStr("patient_id", q.PatientID)
	setTime("date_from", q.DateFrom)
	setTime("date_to", q.DateTo)
	if q.Success != nil {
		v.Set("success", strconv.FormatBool(*q.Success))
	}
	return v
}
