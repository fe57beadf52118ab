package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aussiebroadwan/medrec/internal/medrec/domain"
	"github.com/aussiebroadwan/medrec/internal/medrec/store"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedUser(t *testing.T, s *Store, id, email string, role domain.Role) domain.User {
	t.Helper()

	u := domain.User{
		ID:           id,
		Email:        email,
		PasswordHash: "$argon2id$dummy",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func TestUsers_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	empty, err := s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	seedUser(t, s, "u1", "Alice@Example.com", domain.RoleClinicStaff)

	got, err := s.Users().GetUserByEmail(ctx, "alice@example.COM")
	require.NoError(t, err)
	require.Equal(t, "u1", got.ID)
	require.Equal(t, domain.RoleClinicStaff, got.Role)
	require.True(t, got.IsActive)
	require.False(t, got.CreatedAt.IsZero())

	byID, err := s.Users().GetUserByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, got, byID)

	_, err = s.Users().GetUserByID(ctx, "nope")
	require.ErrorIs(t, err, store.ErrNotFound)

	err = s.Users().CreateUser(ctx, domain.User{ID: "u2", Email: "ALICE@example.com", PasswordHash: "x", Role: domain.RolePatient})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	empty, err = s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)
}

func TestUsers_Updates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedUser(t, s, "u1", "a@example.com", domain.RolePatient)

	require.NoError(t, s.Users().UpdatePasswordHash(ctx, "u1", "new-hash"))
	require.NoError(t, s.Users().SetActive(ctx, "u1", false))

	u, err := s.Users().GetUserByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "new-hash", u.PasswordHash)
	require.False(t, u.IsActive)

	require.ErrorIs(t, s.Users().SetActive(ctx, "ghost", true), store.ErrNotFound)
	require.ErrorIs(t, s.Users().UpdatePasswordHash(ctx, "ghost", "x"), store.ErrNotFound)
}

func TestUsers_RejectsUnknownRole(t *testing.T) {
	s := newTestStore(t)
	err := s.Users().CreateUser(context.Background(), domain.User{ID: "u1", Email: "x@y.z", PasswordHash: "x", Role: "auditor"})
	require.Error(t, err)
}

func TestUsers_CreateFirstUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := domain.User{ID: "u1", Email: "root@example.com", PasswordHash: "x", Role: domain.RoleAdmin, IsActive: true}
	require.NoError(t, s.Users().CreateFirstUser(ctx, first))

	got, err := s.Users().GetUserByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, got.Role)
	require.False(t, got.CreatedAt.IsZero())

	second := domain.User{ID: "u2", Email: "other@example.com", PasswordHash: "x", Role: domain.RoleAdmin}
	require.ErrorIs(t, s.Users().CreateFirstUser(ctx, second), store.ErrNotEmpty)

	_, err = s.Users().GetUserByID(ctx, "u2")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestClinics_MembershipResolution(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	seedUser(t, s, "owner", "owner@example.com", domain.RoleClinicAdmin)
	seedUser(t, s, "staff", "staff@example.com", domain.RoleClinicStaff)
	seedUser(t, s, "loner", "loner@example.com", domain.RoleClinicStaff)

	require.NoError(t, s.Clinics().CreateClinic(ctx, domain.Clinic{ID: "c1", Name: "North", AdminUserID: "owner"}))
	require.NoError(t, s.Clinics().CreateClinic(ctx, domain.Clinic{ID: "c2", Name: "South"}))

	c, err := s.Clinics().GetClinicByID(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, "North", c.Name)
	require.Equal(t, "owner", c.AdminUserID)

	_, err = s.Clinics().GetClinicByID(ctx, "c9")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Admin of a clinic without membership resolves through ownership.
	id, err := s.Clinics().ClinicIDForUser(ctx, "owner")
	require.NoError(t, err)
	require.Equal(t, "c1", id)

	require.NoError(t, s.Clinics().AddMember(ctx, "c1", "staff"))
	id, err = s.Clinics().ClinicIDForUser(ctx, "staff")
	require.NoError(t, err)
	require.Equal(t, "c1", id)

	// Re-adding moves the member.
	require.NoError(t, s.Clinics().AddMember(ctx, "c2", "staff"))
	id, err = s.Clinics().ClinicIDForUser(ctx, "staff")
	require.NoError(t, err)
	require.Equal(t, "c2", id)

	// Membership wins over ownership.
	require.NoError(t, s.Clinics().AddMember(ctx, "c2", "owner"))
	id, err = s.Clinics().ClinicIDForUser(ctx, "owner")
	require.NoError(t, err)
	require.Equal(t, "c2", id)

	_, err = s.Clinics().ClinicIDForUser(ctx, "loner")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestPatients_Profiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedUser(t, s, "p1", "p1@example.com", domain.RolePatient)
	seedUser(t, s, "p2", "p2@example.com", domain.RolePatient)
	require.NoError(t, s.Clinics().CreateClinic(ctx, domain.Clinic{ID: "c1", Name: "North"}))

	require.NoError(t, s.Patients().CreatePatientProfile(ctx, domain.PatientProfile{ID: "pp1", UserID: "p1", ClinicID: "c1"}))
	require.NoError(t, s.Patients().CreatePatientProfile(ctx, domain.PatientProfile{ID: "pp2", UserID: "p2"}))

	p, err := s.Patients().GetPatientProfileByUserID(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "pp1", p.ID)
	require.Equal(t, "c1", p.ClinicID)

	p, err = s.Patients().GetPatientProfileByUserID(ctx, "p2")
	require.NoError(t, err)
	require.Empty(t, p.ClinicID)

	err = s.Patients().CreatePatientProfile(ctx, domain.PatientProfile{ID: "pp3", UserID: "p1"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = s.Patients().GetPatientProfileByUserID(ctx, "ghost")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTx_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Users().CreateUser(ctx, domain.User{ID: "u1", Email: "a@b.c", PasswordHash: "x", Role: domain.RolePatient}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Users().GetUserByID(ctx, "u1")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.Tx(ctx)
		require.ErrorIs(t, err, ErrNestedTx)
		require.ErrorIs(t, tx.WithTx(ctx, func(store.Tx) error { return nil }), ErrNestedTx)
		return tx.Users().CreateUser(ctx, domain.User{ID: "u1", Email: "a@b.c", PasswordHash: "x", Role: domain.RolePatient})
	}))

	_, err = s.Users().GetUserByID(ctx, "u1")
	require.NoError(t, err)
}

func TestBuildDSN(t *testing.T) {
	require.Equal(t, ":memory:", buildDSN(":memory:"))
	require.Equal(t,
		"file:/tmp/x.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		buildDSN("/tmp/x.db"),
	)
	require.Equal(t,
		"file:/tmp/x.db?cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		buildDSN("/tmp/x.db?cache=shared"),
	)
	require.Equal(t, "file:x.db?_pragma=foreign_keys(0)", buildDSN("file:x.db?_pragma=foreign_keys(0)"))
}

func TestPing_Failure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(fmt.Errorf("disk gone"))

	s := NewStoreWithDB(db)
	require.Error(t, s.Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFileStore_Persists(t *testing.T) {
	path := t.TempDir() + "/medrec.db"

	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	seedUser(t, s, "u1", "a@example.com", domain.RoleAdmin)
	require.NoError(t, s.Close())

	s, err = NewStore(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.ApplyMigrations())

	_, err = s.Users().GetUserByID(context.Background(), "u1")
	require.NoError(t, err)
}

func TestTimeRoundTrip(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 30, 45, 123456789, time.FixedZone("x", 3600))
	require.True(t, ts.Equal(fromUnix(toUnix(ts))))
	require.Equal(t, time.UTC, fromUnix(toUnix(ts)).Location())
}

func TestSchemaVersion(t *testing.T) {
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	v, dirty, err := s.SchemaVersion()
	require.NoError(t, err)
	require.Zero(t, v)
	require.False(t, dirty)

	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.ApplyMigrations())

	v, dirty, err = s.SchemaVersion()
	require.NoError(t, err)
	require.EqualValues(t, 1, v)
	require.False(t, dirty)
}
