package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aussiebroadwan/medrec/internal/medrec/domain"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

func entry(id, actor, clinic string, action domain.Action, et domain.EntityType, at time.Time) domain.AuditEntry {
	return domain.AuditEntry{
		ID:         id,
		ActorID:    actor,
		ActorEmail: actor + "@example.com",
		ActorRole:  domain.RoleClinicStaff,
		Action:     action,
		EntityType: et,
		ClinicID:   clinic,
		Success:    true,
		CreatedAt:  at,
	}
}

func seedAudit(t *testing.T, s *Store, entries ...domain.AuditEntry) {
	t.Helper()
	for _, e := range entries {
		require.NoError(t, s.AuditLogs().Append(context.Background(), e))
	}
}

func ids(entries []domain.AuditEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestAudit_AppendRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	in := domain.AuditEntry{
		ID:           "a1",
		ActorID:      "u1",
		ActorEmail:   "u1@example.com",
		ActorRole:    domain.RoleClinicAdmin,
		Action:       domain.ActionUpdate,
		EntityType:   domain.EntityPatient,
		EntityID:     "pat-1",
		EntityName:   "Jane Roe",
		ClinicID:     "c1",
		PatientID:    "pat-1",
		Description:  "Updated patient",
		Changes:      domain.F("phone", domain.F("old", "1", "new", "2")),
		Metadata:     domain.F("source", "form", "attempt", 2),
		IPAddress:    "10.0.0.1",
		UserAgent:    "curl/8",
		RequestPath:  "/patients/pat-1",
		Success:      false,
		ErrorMessage: "validation failed",
		CreatedAt:    t0,
	}
	seedAudit(t, s, in)

	got, err := s.AuditLogs().Query(ctx, domain.Scope{Unrestricted: true}, domain.AuditFilter{}, domain.Page{Number: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)

	out := got[0]
	require.Equal(t, in.ID, out.ID)
	require.Equal(t, in.ActorRole, out.ActorRole)
	require.Equal(t, in.RequestPath, out.RequestPath)
	require.Equal(t, in.ErrorMessage, out.ErrorMessage)
	require.False(t, out.Success)
	require.True(t, t0.Equal(out.CreatedAt))
	require.Equal(t, []string{"source", "attempt"}, out.Metadata.Keys())

	raw, err := json.Marshal(out.Changes)
	require.NoError(t, err)
	require.JSONEq(t, `{"phone":{"old":"1","new":"2"}}`, string(raw))
}

func TestAudit_AnonymousEntryHasNullActor(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	seedAudit(t, s, domain.AuditEntry{ID: "a1", Action: domain.ActionLogin, EntityType: domain.EntityUser, CreatedAt: t0})

	var n int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs WHERE user_id IS NULL AND metadata IS NULL`).Scan(&n))
	require.Equal(t, 1, n)

	got, err := s.AuditLogs().Recent(ctx, domain.Scope{Unrestricted: true}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Empty(t, got[0].ActorID)
	require.Nil(t, got[0].Metadata)
}

func TestAudit_AppendOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedAudit(t, s, entry("a1", "u1", "c1", domain.ActionView, domain.EntityDocument, t0))

	_, err := s.db.ExecContext(ctx, `UPDATE audit_logs SET description = 'x' WHERE id = 'a1'`)
	require.ErrorContains(t, err, "append-only")

	_, err = s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE id = 'a1'`)
	require.ErrorContains(t, err, "append-only")

	// Same id twice is a conflict, not an overwrite.
	err = s.AuditLogs().Append(ctx, entry("a1", "u2", "c2", domain.ActionView, domain.EntityDocument, t0))
	require.Error(t, err)
}

func TestAudit_ScopeIsolation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	seedAudit(t, s,
		entry("a1", "u1", "7", domain.ActionView, domain.EntityDocument, t0),
		entry("a2", "u2", "9", domain.ActionView, domain.EntityDocument, t0.Add(time.Minute)),
		entry("a3", "p1", "", domain.ActionLogin, domain.EntityUser, t0.Add(2*time.Minute)),
		entry("a4", "p1", "", domain.ActionView, domain.EntityClinic, t0.Add(3*time.Minute)),
		entry("a5", "u1", "", domain.ActionLogin, domain.EntityUser, t0.Add(4*time.Minute)),
	)
	page := domain.Page{Number: 1, PerPage: 50}

	cases := []struct {
		name  string
		scope domain.Scope
		want  []string
	}{
		{"admin", domain.Scope{Unrestricted: true}, []string{"a5", "a4", "a3", "a2", "a1"}},
		{"clinic 7", domain.Scope{ClinicID: "7"}, []string{"a1"}},
		{"clinic 9", domain.Scope{ClinicID: "9"}, []string{"a2"}},
		{"actor only", domain.Scope{ActorID: "u1"}, []string{"a5", "a1"}},
		{"patient", domain.Scope{ActorID: "p1", EntityTypes: domain.PatientVisibleEntities}, []string{"a3"}},
		{"empty restricted", domain.Scope{}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.AuditLogs().Query(ctx, tc.scope, domain.AuditFilter{}, page)
			require.NoError(t, err)
			require.Equal(t, tc.want, ids(got))

			n, err := s.AuditLogs().Count(ctx, tc.scope, domain.AuditFilter{})
			require.NoError(t, err)
			require.EqualValues(t, len(tc.want), n)

			for _, e := range got {
				require.True(t, tc.scope.Allows(e), "entry %s outside scope", e.ID)
			}
		})
	}
}

func TestAudit_FiltersIntersectScope(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	failed := entry("a3", "u2", "7", domain.ActionLogin, domain.EntityUser, t0.Add(2*time.Hour))
	failed.Success = false
	seedAudit(t, s,
		entry("a1", "u1", "7", domain.ActionView, domain.EntityDocument, t0),
		entry("a2", "u1", "7", domain.ActionDownload, domain.EntityDocument, t0.Add(time.Hour)),
		failed,
		entry("a4", "u1", "9", domain.ActionView, domain.EntityDocument, t0.Add(3*time.Hour)),
	)
	page := domain.Page{Number: 1, PerPage: 50}
	no := false

	cases := []struct {
		name   string
		filter domain.AuditFilter
		want   []string
	}{
		{"action", domain.AuditFilter{Action: domain.ActionView}, []string{"a1"}},
		{"entity", domain.AuditFilter{EntityType: domain.EntityUser}, []string{"a3"}},
		{"user", domain.AuditFilter{UserID: "u1"}, []string{"a2", "a1"}},
		{"other clinic yields nothing", domain.AuditFilter{ClinicID: "9"}, []string{}},
		{"date range inclusive", domain.AuditFilter{DateFrom: t0.Add(time.Hour), DateTo: t0.Add(2 * time.Hour)}, []string{"a3", "a2"}},
		{"failures", domain.AuditFilter{Success: &no}, []string{"a3"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.AuditLogs().Query(ctx, domain.Scope{ClinicID: "7"}, tc.filter, page)
			require.NoError(t, err)
			require.Equal(t, tc.want, ids(got))

			n, err := s.AuditLogs().Count(ctx, domain.Scope{ClinicID: "7"}, tc.filter)
			require.NoError(t, err)
			require.EqualValues(t, len(tc.want), n)
		})
	}
}

func TestAudit_PaginationAndTieBreak(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := range 7 {
		// Pairs share a timestamp so the id breaks ties.
		seedAudit(t, s, entry(fmt.Sprintf("a%d", i), "u1", "c1", domain.ActionView, domain.EntityDocument, t0.Add(time.Duration(i/2)*time.Minute)))
	}
	scope := domain.Scope{Unrestricted: true}

	p1, err := s.AuditLogs().Query(ctx, scope, domain.AuditFilter{}, domain.Page{Number: 1, PerPage: 3})
	require.NoError(t, err)
	require.Equal(t, []string{"a6", "a5", "a4"}, ids(p1))

	p3, err := s.AuditLogs().Query(ctx, scope, domain.AuditFilter{}, domain.Page{Number: 3, PerPage: 3})
	require.NoError(t, err)
	require.Equal(t, []string{"a0"}, ids(p3))

	p4, err := s.AuditLogs().Query(ctx, scope, domain.AuditFilter{}, domain.Page{Number: 4, PerPage: 3})
	require.NoError(t, err)
	require.Empty(t, p4)
	require.NotNil(t, p4)
}

func TestAudit_Aggregates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	seedAudit(t, s,
		entry("a1", "u1", "c1", domain.ActionView, domain.EntityDocument, t0),
		entry("a2", "u1", "c1", domain.ActionView, domain.EntityPatient, t0.Add(time.Hour)),
		entry("a3", "u1", "c1", domain.ActionLogin, domain.EntityUser, t0.Add(2*time.Hour)),
		entry("a4", "u1", "c1", domain.ActionDownload, domain.EntityDocument, t0.Add(3*time.Hour)),
		entry("a5", "u2", "c2", domain.ActionView, domain.EntityDocument, t0.Add(4*time.Hour)),
	)
	all := domain.Scope{Unrestricted: true}

	n, err := s.AuditLogs().CountSince(ctx, all, t0.Add(2*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	n, err = s.AuditLogs().CountSince(ctx, domain.Scope{ClinicID: "c1"}, t0.Add(2*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	top, err := s.AuditLogs().TopActions(ctx, all, 2)
	require.NoError(t, err)
	require.Equal(t, []domain.CountBy{{Key: "view", Count: 3}, {Key: "download", Count: 1}}, top)

	ents, err := s.AuditLogs().TopEntityTypes(ctx, all, 10)
	require.NoError(t, err)
	require.Equal(t, []domain.CountBy{{Key: "document", Count: 3}, {Key: "patient", Count: 1}, {Key: "user", Count: 1}}, ents)

	recent, err := s.AuditLogs().Recent(ctx, all, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"a5", "a4"}, ids(recent))

	none, err := s.AuditLogs().TopActions(ctx, domain.Scope{}, 10)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestAudit_QueryFailurePropagates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewStoreWithDB(db)
	boom := errors.New("database is locked")

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_logs WHERE clinic_id = \? AND action = \?`).
		WithArgs("c1", "view").
		WillReturnError(boom)
	mock.ExpectQuery(`SELECT .* FROM audit_logs WHERE user_id = \? AND entity_type IN \(\?, \?\) ORDER BY created_at DESC, id DESC LIMIT \? OFFSET \?`).
		WithArgs("p1", "user", "document", 20, 20).
		WillReturnError(boom)
	mock.ExpectExec(`INSERT INTO audit_logs`).WillReturnError(boom)

	_, err = s.AuditLogs().Count(context.Background(), domain.Scope{ClinicID: "c1"}, domain.AuditFilter{Action: domain.ActionView})
	require.ErrorIs(t, err, boom)

	_, err = s.AuditLogs().Query(context.Background(),
		domain.Scope{ActorID: "p1", EntityTypes: domain.PatientVisibleEntities},
		domain.AuditFilter{},
		domain.Page{Number: 2, PerPage: 20},
	)
	require.ErrorIs(t, err, boom)

	err = s.AuditLogs().Append(context.Background(), entry("a1", "u1", "c1", domain.ActionView, domain.EntityDocument, t0))
	require.ErrorIs(t, err, boom)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAudit_CorruptMetadataSurfaces(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{
		"id", "user_id", "user_email", "user_role", "action", "entity_type", "entity_id", "entity_name",
		"clinic_id", "patient_id", "description", "changes", "metadata", "ip_address", "user_agent", "request_path",
		"success", "error_message", "created_at",
	}
	mock.ExpectQuery(`SELECT .* FROM audit_logs ORDER BY`).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"a1", nil, nil, nil, "view", "document", nil, nil,
			nil, nil, "", nil, "[not json", nil, nil, nil,
			1, nil, t0.UnixNano(),
		))

	_, err = NewStoreWithDB(db).AuditLogs().Recent(context.Background(), domain.Scope{Unrestricted: true}, 10)
	require.ErrorContains(t, err, "decode metadata of a1")
	require.NoError(t, mock.ExpectationsWereMet())
}
