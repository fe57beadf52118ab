package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/medrec/internal/medrec/domain"
)

const auditColumns = `id, user_id, user_email, user_role, action, entity_type, entity_id, entity_name,
	clinic_id, patient_id, description, changes, metadata, ip_address, user_agent, request_path,
	success, error_message, created_at`

type auditLogsRepo struct {
	db DBTX
}

func (r *auditLogsRepo) Append(ctx context.Context, e domain.AuditEntry) error {
	changes, err := encodeFields(e.Changes)
	if err != nil {
		return fmt.Errorf("encode changes: %w", err)
	}
	metadata, err := encodeFields(e.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (`+auditColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		mapStringNull(e.ActorID),
		mapStringNull(e.ActorEmail),
		mapStringNull(string(e.ActorRole)),
		string(e.Action),
		string(e.EntityType),
		mapStringNull(e.EntityID),
		mapStringNull(e.EntityName),
		mapStringNull(e.ClinicID),
		mapStringNull(e.PatientID),
		e.Description,
		changes,
		metadata,
		mapStringNull(e.IPAddress),
		mapStringNull(e.UserAgent),
		mapStringNull(e.RequestPath),
		boolToInt(e.Success),
		mapStringNull(e.ErrorMessage),
		toUnix(e.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *auditLogsRepo) Query(ctx context.Context, scope domain.Scope, f domain.AuditFilter, page domain.Page) ([]domain.AuditEntry, error) {
	w := newWhere()
	w.scope(scope)
	w.filter(f)

	query := `SELECT ` + auditColumns + ` FROM audit_logs` + w.sql() +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args := append(w.args, page.PerPage, page.Offset())

	return r.list(ctx, query, args...)
}

func (r *auditLogsRepo) Count(ctx context.Context, scope domain.Scope, f domain.AuditFilter) (int64, error) {
	w := newWhere()
	w.scope(scope)
	w.filter(f)
	return r.count(ctx, w)
}

func (r *auditLogsRepo) CountSince(ctx context.Context, scope domain.Scope, since time.Time) (int64, error) {
	w := newWhere()
	w.scope(scope)
	w.add("created_at >= ?", toUnix(since))
	return r.count(ctx, w)
}

func (r *auditLogsRepo) TopActions(ctx context.Context, scope domain.Scope, limit int) ([]domain.CountBy, error) {
	return r.top(ctx, "action", scope, limit)
}

func (r *auditLogsRepo) TopEntityTypes(ctx context.Context, scope domain.Scope, limit int) ([]domain.CountBy, error) {
	return r.top(ctx, "entity_type", scope, limit)
}

func (r *auditLogsRepo) Recent(ctx context.Context, scope domain.Scope, limit int) ([]domain.AuditEntry, error) {
	w := newWhere()
	w.scope(scope)

	query := `SELECT ` + auditColumns + ` FROM audit_logs` + w.sql() +
		` ORDER BY created_at DESC, id DESC LIMIT ?`
	return r.list(ctx, query, append(w.args, limit)...)
}

func (r *auditLogsRepo) count(ctx context.Context, w *where) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`+w.sql(), w.args...).Scan(&n)
	return n, err
}

// top groups by column, which is always one of our own column names.
func (r *auditLogsRepo) top(ctx context.Context, column string, scope domain.Scope, limit int) ([]domain.CountBy, error) {
	w := newWhere()
	w.scope(scope)

	query := `SELECT ` + column + `, COUNT(*) AS n FROM audit_logs` + w.sql() +
		` GROUP BY ` + column + ` ORDER BY n DESC, ` + column + ` ASC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, append(w.args, limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.CountBy, 0, limit)
	for rows.Next() {
		var c domain.CountBy
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *auditLogsRepo) list(ctx context.Context, query string, args ...any) ([]domain.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.AuditEntry{}
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanAuditEntry(rows *sql.Rows) (domain.AuditEntry, error) {
	var (
		e                                      domain.AuditEntry
		actorID, actorEmail, actorRole         sql.NullString
		action, entityType                     string
		entityID, entityName                   sql.NullString
		clinicID, patientID                    sql.NullString
		changes, metadata                      sql.NullString
		ipAddress, userAgent, requestPath, msg sql.NullString
		success                                int
		createdAt                              int64
	)
	err := rows.Scan(
		&e.ID, &actorID, &actorEmail, &actorRole, &action, &entityType, &entityID, &entityName,
		&clinicID, &patientID, &e.Description, &changes, &metadata, &ipAddress, &userAgent, &requestPath,
		&success, &msg, &createdAt,
	)
	if err != nil {
		return domain.AuditEntry{}, err
	}

	e.ActorID = mapNullString(actorID)
	e.ActorEmail = mapNullString(actorEmail)
	e.ActorRole = domain.Role(mapNullString(actorRole))
	e.Action = domain.Action(action)
	e.EntityType = domain.EntityType(entityType)
	e.EntityID = mapNullString(entityID)
	e.EntityName = mapNullString(entityName)
	e.ClinicID = mapNullString(clinicID)
	e.PatientID = mapNullString(patientID)
	e.IPAddress = mapNullString(ipAddress)
	e.UserAgent = mapNullString(userAgent)
	e.RequestPath = mapNullString(requestPath)
	e.Success = success != 0
	e.ErrorMessage = mapNullString(msg)
	e.CreatedAt = fromUnix(createdAt)

	if e.Changes, err = decodeFields(changes); err != nil {
		return domain.AuditEntry{}, fmt.Errorf("decode changes of %s: %w", e.ID, err)
	}
	if e.Metadata, err = decodeFields(metadata); err != nil {
		return domain.AuditEntry{}, fmt.Errorf("decode metadata of %s: %w", e.ID, err)
	}
	return e, nil
}

// where accumulates ANDed predicates with positional args.
type where struct {
	clauses []string
	args    []any
}

func newWhere() *where { return &where{} }

func (w *where) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

// scope restricts rows to what the scope allows. A restricted scope with
// neither clinic nor actor matches nothing.
func (w *where) scope(s domain.Scope) {
	if s.Unrestricted {
		return
	}
	if s.ClinicID == "" && s.ActorID == "" {
		w.add("1 = 0")
		return
	}
	if s.ClinicID != "" {
		w.add("clinic_id = ?", s.ClinicID)
	}
	if s.ActorID != "" {
		w.add("user_id = ?", s.ActorID)
	}
	if len(s.EntityTypes) > 0 {
		marks := make([]string, len(s.EntityTypes))
		args := make([]any, len(s.EntityTypes))
		for i, et := range s.EntityTypes {
			marks[i] = "?"
			args[i] = string(et)
		}
		w.add("entity_type IN ("+strings.Join(marks, ", ")+")", args...)
	}
}

func (w *where) filter(f domain.AuditFilter) {
	if f.Action != "" {
		w.add("action = ?", string(f.Action))
	}
	if f.EntityType != "" {
		w.add("entity_type = ?", string(f.EntityType))
	}
	if f.UserID != "" {
		w.add("user_id = ?", f.UserID)
	}
	if f.ClinicID != "" {
		w.add("clinic_id = ?", f.ClinicID)
	}
	if f.PatientID != "" {
		w.add("patient_id = ?", f.PatientID)
	}
	if !f.DateFrom.IsZero() {
		w.add("created_at >= ?", toUnix(f.DateFrom))
	}
	if !f.DateTo.IsZero() {
		w.add("created_at <= ?", toUnix(f.DateTo))
	}
	if f.Success != nil {
		w.add("success = ?", boolToInt(*f.Success))
	}
}

func (w *where) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}
