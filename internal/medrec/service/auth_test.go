package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/medrec/internal/medrec/domain"
	"github.com/aussiebroadwan/medrec/internal/medrec/store"
	"github.com/aussiebroadwan/medrec/pkg/cryptox"
	"github.com/aussiebroadwan/medrec/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	require.NoError(t, ValidatePassword("Passw0rd"))
	require.NoError(t, ValidatePassword("Ünïcode9x"))

	for _, pw := range []string{"", "Sh0rt", "alllower1", "ALLUPPER1", "NoDigitsHere"} {
		require.ErrorIs(t, ValidatePassword(pw), ErrInvalidRequest, "password %q", pw)
	}
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)
	valid := RegisterInput{
		Email: "new@example.com", Password: "Passw0rd!", FirstName: "New", LastName: "User", Role: "patient",
	}

	cases := map[string]func(in *RegisterInput){
		"unknown role":        func(in *RegisterInput) { in.Role = "doctor" },
		"bad email":           func(in *RegisterInput) { in.Email = "not-an-email" },
		"display name":        func(in *RegisterInput) { in.Email = "Bob <bob@example.com>" },
		"weak password":       func(in *RegisterInput) { in.Password = "password" },
		"missing first name":  func(in *RegisterInput) { in.FirstName = "  " },
		"clinic admin fields": func(in *RegisterInput) { in.Role = "clinic_admin" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			mutate(&in)
			_, err := env.Auth.Register(context.Background(), in)
			require.ErrorIs(t, err, ErrInvalidRequest)
		})
	}

	empty, err := env.Store.Users().IsEmpty(context.Background())
	require.NoError(t, err)
	require.True(t, empty)
}

func TestRegister_AdminOnlyWhenEmpty(t *testing.T) {
	env := newTestEnv(t)

	first := env.register(t, "root@example.com", domain.RoleAdmin)
	require.Equal(t, domain.RoleAdmin, first.User.Role)

	_, err := env.Auth.Register(context.Background(), RegisterInput{
		Email: "root2@example.com", Password: "Passw0rd!", FirstName: "Second", LastName: "Admin", Role: "admin",
	})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestRegister_ConcurrentAdminsOnlyOneWins(t *testing.T) {
	env := newTestEnvAt(t, t.TempDir()+"/medrec.db")
	ctx := context.Background()

	const n = 8
	errs := make([]error, n)
	var start, wg sync.WaitGroup
	start.Add(1)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start.Wait()
			_, errs[i] = env.Auth.Register(ctx, RegisterInput{
				Email:     fmt.Sprintf("root%d@example.com", i),
				Password:  "Passw0rd!",
				FirstName: "Root",
				LastName:  strconv.Itoa(i),
				Role:      "admin",
			})
		}()
	}
	start.Done()
	wg.Wait()

	winners := 0
	for i, err := range errs {
		email := fmt.Sprintf("root%d@example.com", i)
		if err == nil {
			winners++
			u, err := env.Store.Users().GetUserByEmail(ctx, email)
			require.NoError(t, err)
			require.Equal(t, domain.RoleAdmin, u.Role)
			continue
		}
		require.ErrorIs(t, err, ErrForbidden, "register %s", email)
		_, err = env.Store.Users().GetUserByEmail(ctx, email)
		require.ErrorIs(t, err, store.ErrNotFound)
	}
	require.Equal(t, 1, winners)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "dup@example.com", domain.RolePatient)

	_, err := env.Auth.Register(context.Background(), RegisterInput{
		Email: "DUP@example.com", Password: "Passw0rd!", FirstName: "Again", LastName: "Dup", Role: "patient",
	})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_CreatesScope(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.register(t, "owner@example.com", domain.RoleClinicAdmin)
	require.NotNil(t, owner.Clinic)
	require.Equal(t, owner.User.ID, owner.Clinic.AdminUserID)

	clinic, err := env.Store.Clinics().GetClinicByID(ctx, owner.Clinic.ID)
	require.NoError(t, err)
	require.Equal(t, "Clinic of owner@example.com", clinic.Name)
	require.Equal(t, owner.Clinic.ID, env.principal(t, owner.User.ID).ClinicID)

	patient := env.register(t, "pat@example.com", domain.RolePatient)
	require.Nil(t, patient.Clinic)
	profile, err := env.Store.Patients().GetPatientProfileByUserID(ctx, patient.User.ID)
	require.NoError(t, err)
	require.Equal(t, profile.ID, env.principal(t, patient.User.ID).PatientID)

	entries := env.allEntries(t)
	require.Len(t, entries, 2)
	ownerEntry := entries[1]
	require.Equal(t, domain.ActionCreate, ownerEntry.Action)
	require.Equal(t, domain.EntityUser, ownerEntry.EntityType)
	require.Equal(t, owner.User.ID, ownerEntry.EntityID)
	require.Equal(t, owner.Clinic.ID, ownerEntry.ClinicID)
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reg := env.register(t, "user@example.com", domain.RolePatient)

	res, err := env.Auth.Login(ctx, " USER@example.com ", "Passw0rd!", LoginMethodJSON)
	require.NoError(t, err)
	require.Equal(t, reg.User.ID, res.User.ID)
	require.Equal(t, 30*time.Minute, res.ExpiresIn)
	require.True(t, res.ExpiresAt.Equal(env.Clock.Now().Add(30*time.Minute)))

	p, err := env.Guard.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, res.Principal, p)

	entries := env.allEntries(t)
	require.Equal(t, domain.ActionLogin, entries[0].Action)
	require.True(t, entries[0].Success)
	require.Equal(t, reg.User.ID, entries[0].ActorID)
	method, _ := entries[0].Metadata.Get("method")
	require.Equal(t, "json", method)
	require.Equal(t, 1, env.Metrics.loginOK)
}

func TestLogin_Failures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reg := env.register(t, "user@example.com", domain.RolePatient)

	_, err := env.Auth.Login(ctx, "user@example.com", "WrongPass1", LoginMethodForm)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.Auth.Login(ctx, "nobody@example.com", "Passw0rd!", LoginMethodForm)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, env.Store.Users().SetActive(ctx, reg.User.ID, false))
	_, err = env.Auth.Login(ctx, "user@example.com", "Passw0rd!", LoginMethodForm)
	require.ErrorIs(t, err, ErrInactiveUser)

	require.Equal(t, 3, env.Metrics.loginFailed)
	require.Zero(t, env.Metrics.loginOK)

	failed, err := env.Store.AuditLogs().Query(ctx, domain.Scope{Unrestricted: true},
		domain.AuditFilter{Action: domain.ActionLogin}, domain.Page{Number: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, failed, 3)

	emails := map[any]bool{}
	for _, e := range failed {
		require.False(t, e.Success)
		require.Empty(t, e.ActorID, "failed logins are anonymous")
		require.NotEmpty(t, e.ErrorMessage)
		v, ok := e.Metadata.Get("attempted_email")
		require.True(t, ok)
		emails[v] = true
	}
	require.True(t, emails["nobody@example.com"])
	require.True(t, emails["user@example.com"])
}

func TestLogin_RehashesOutdatedDigest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	old := &cryptox.Hasher{Params: env.Hasher.Params, Pepper: env.Hasher.Pepper}
	old.Params.Iterations = 2
	hash, err := old.Hash("Passw0rd!")
	require.NoError(t, err)
	require.True(t, env.Hasher.NeedsRehash(hash))

	user := domain.User{
		ID: idx.New().String(), Email: "legacy@example.com", PasswordHash: hash,
		FirstName: "Leg", LastName: "Acy", Role: domain.RoleClinicStaff, IsActive: true,
		CreatedAt: env.Clock.Now(), UpdatedAt: env.Clock.Now(),
	}
	require.NoError(t, env.Store.Users().CreateUser(ctx, user))

	_, err = env.Auth.Login(ctx, "legacy@example.com", "Passw0rd!", LoginMethodForm)
	require.NoError(t, err)

	stored, err := env.Store.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotEqual(t, hash, stored.PasswordHash)
	require.False(t, env.Hasher.NeedsRehash(stored.PasswordHash))
	require.NoError(t, env.Hasher.Verify("Passw0rd!", stored.PasswordHash))
}

func TestLogin_AuditFailureDoesNotBlock(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "user@example.com", domain.RolePatient)

	env.Auth.Audit = NewAuditLogger(brokenAuditStore{env.Store}, env.Metrics, false)
	res, err := env.Auth.Login(context.Background(), "user@example.com", "Passw0rd!", LoginMethodForm)
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	require.Equal(t, 1, env.Metrics.auditFailed)
}

func TestSetActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.principal(t, env.register(t, "root@example.com", domain.RoleAdmin).User.ID)
	patient := env.register(t, "p@example.com", domain.RolePatient)

	u, err := env.Auth.SetActive(ctx, admin, patient.User.ID, false)
	require.NoError(t, err)
	require.False(t, u.IsActive)

	_, err = env.Auth.Login(ctx, "p@example.com", "Passw0rd!", LoginMethodForm)
	require.ErrorIs(t, err, ErrInactiveUser)

	updates, err := env.Store.AuditLogs().Query(ctx, domain.Scope{Unrestricted: true},
		domain.AuditFilter{Action: domain.ActionUpdate}, domain.Page{Number: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, updates, 1)
	require.Equal(t, patient.User.ID, updates[0].EntityID)
	require.Equal(t, []string{"is_active"}, updates[0].Changes.Keys())

	// Repeating the change is a no-op and writes nothing.
	_, err = env.Auth.SetActive(ctx, admin, patient.User.ID, false)
	require.NoError(t, err)
	updates, err = env.Store.AuditLogs().Query(ctx, domain.Scope{Unrestricted: true},
		domain.AuditFilter{Action: domain.ActionUpdate}, domain.Page{Number: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, updates, 1)

	_, err = env.Auth.SetActive(ctx, admin, admin.UserID, false)
	require.ErrorIs(t, err, ErrInvalidRequest)

	owner := env.principal(t, env.register(t, "o@example.com", domain.RoleClinicAdmin).User.ID)
	_, err = env.Auth.SetActive(ctx, owner, patient.User.ID, true)
	require.ErrorIs(t, err, ErrForbidden)
}
