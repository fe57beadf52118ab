package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/medrec/internal/medrec/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrNotEmpty is returned by CreateFirstUser when any user exists.
	ErrNotEmpty = errors.New("store: users already exist")
)

// Store is the root data access interface. Concrete drivers (sqlite)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and so a transaction can only be started from the root.
type Store interface {
	Users() Users
	Clinics() Clinics
	Patients() Patients
	AuditLogs() AuditLogs

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id. Used to resolve token subjects.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is the credential lookup for login. Matching is
	// case-insensitive.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// CreateFirstUser inserts u only if the users table is empty, as a single
	// atomic statement. Returns ErrNotEmpty otherwise.
	CreateFirstUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash replaces the stored credential and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// SetActive enables or disables the account.
	SetActive(ctx context.Context, userID string, active bool) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type Clinics interface {
	CreateClinic(ctx context.Context, c domain.Clinic) error
	GetClinicByID(ctx context.Context, id string) (domain.Clinic, error)

	// AddMember attaches a staff account to a clinic, replacing any previous
	// membership.
	AddMember(ctx context.Context, clinicID, userID string) error

	// ClinicIDForUser resolves the clinic of a clinic-scoped account:
	// explicit membership first, then clinics the user administers. Returns
	// ErrNotFound when neither exists.
	ClinicIDForUser(ctx context.Context, userID string) (string, error)
}

type Patients interface {
	CreatePatientProfile(ctx context.Context, p domain.PatientProfile) error
	GetPatientProfileByUserID(ctx context.Context, userID string) (domain.PatientProfile, error)
}

// AuditLogs is append-only: there is no update or delete.
type AuditLogs interface {
	Append(ctx context.Context, e domain.AuditEntry) error

	// Query returns entries visible under scope and matching f, newest first.
	Query(ctx context.Context, scope domain.Scope, f domain.AuditFilter, page domain.Page) ([]domain.AuditEntry, error)

	// Count returns the total Query would page through.
	Count(ctx context.Context, scope domain.Scope, f domain.AuditFilter) (int64, error)

	// CountSince counts entries under scope created at or after since.
	CountSince(ctx context.Context, scope domain.Scope, since time.Time) (int64, error)

	TopActions(ctx context.Context, scope domain.Scope, limit int) ([]domain.CountBy, error)
	TopEntityTypes(ctx context.Context, scope domain.Scope, limit int) ([]domain.CountBy, error)
	Recent(ctx context.Context, scope domain.Scope, limit int) ([]domain.AuditEntry, error)
}
