package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/medrec/internal/medrec/domain"
	"github.com/aussiebroadwan/medrec/internal/medrec/store"
	"github.com/aussiebroadwan/medrec/internal/medrec/store/drivers/sqlite"
	"github.com/aussiebroadwan/medrec/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// fakeClock is a settable clock shared by every service in an env.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingMetrics struct {
	mu          sync.Mutex
	auditOK     int
	auditFailed int
	loginOK     int
	loginFailed int
}

func (m *countingMetrics) AuditWrite(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.auditOK++
	} else {
		m.auditFailed++
	}
}

func (m *countingMetrics) LoginAttempt(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.loginOK++
	} else {
		m.loginFailed++
	}
}

type testEnv struct {
	Store     *sqlite.Store
	Clock     *fakeClock
	Metrics   *countingMetrics
	Hasher    *cryptox.Hasher
	Tokens    *TokenService
	Guard     *AccessGuard
	Audit     *AuditLogger
	Query     *AuditQueryEngine
	Auth      *AuthService
	Directory *DirectoryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvAt(t, ":memory:")
}

// newTestEnvAt builds an env over the database at path. A file path gives a
// pool of real connections, which concurrent tests need.
func newTestEnvAt(t *testing.T, path string) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	clock := &fakeClock{now: time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)}
	m := &countingMetrics{}

	hasher := &cryptox.Hasher{
		Params: cryptox.Params{Memory: 1024, Iterations: 1, Parallelism: 1, KeyLength: 32, SaltLength: 16},
		Pepper: "test-pepper",
	}

	tokens, err := NewTokenService(TokenConfig{Secret: testSecret, Issuer: "medrec-test", Now: clock.Now})
	require.NoError(t, err)

	guard := NewAccessGuard(tokens, st)
	audit := NewAuditLogger(st, m, false)
	audit.Now = clock.Now
	query := NewAuditQueryEngine(st)
	query.Now = clock.Now

	return &testEnv{
		Store:   st,
		Clock:   clock,
		Metrics: m,
		Hasher:  hasher,
		Tokens:  tokens,
		Guard:   guard,
		Audit:   audit,
		Query:   query,
		Auth: &AuthService{
			Store:   st,
			Hasher:  hasher,
			Tokens:  tokens,
			Guard:   guard,
			Audit:   audit,
			Metrics: m,
		},
		Directory: &DirectoryService{Store: st, Audit: audit},
	}
}

// register creates an account through the real registration path.
func (e *testEnv) register(t *testing.T, email string, role domain.Role) RegisterResult {
	t.Helper()

	in := RegisterInput{
		Email:     email,
		Password:  "Passw0rd!",
		FirstName: "Test",
		LastName:  string(role),
		Role:      string(role),
	}
	if role == domain.RoleClinicAdmin {
		in.ClinicName = "Clinic of " + email
		in.ClinicLicense = "LIC-" + email
	}

	res, err := e.Auth.Register(context.Background(), in)
	require.NoError(t, err)
	return res
}

// principal resolves the principal of userID the way authentication does.
func (e *testEnv) principal(t *testing.T, userID string) domain.Principal {
	t.Helper()

	u, err := e.Store.Users().GetUserByID(context.Background(), userID)
	require.NoError(t, err)
	p, err := e.Guard.Resolve(context.Background(), u)
	require.NoError(t, err)
	return p
}

// allEntries lists the whole trail, newest first.
func (e *testEnv) allEntries(t *testing.T) []domain.AuditEntry {
	t.Helper()

	entries, err := e.Store.AuditLogs().Query(context.Background(),
		domain.Scope{Unrestricted: true}, domain.AuditFilter{}, domain.Page{Number: 1, PerPage: 100})
	require.NoError(t, err)
	return entries
}

var errStoreDown = errors.New("store down")

// brokenAuditStore fails every audit append and works otherwise.
type brokenAuditStore struct {
	store.Store
}

func (s brokenAuditStore) AuditLogs() store.AuditLogs { return brokenAuditLogs{s.Store.AuditLogs()} }

type brokenAuditLogs struct {
	store.AuditLogs
}

func (brokenAuditLogs) Append(context.Context, domain.AuditEntry) error { return errStoreDown }
