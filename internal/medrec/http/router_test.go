package http_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpapi "github.com/aussiebroadwan/medrec/internal/medrec/http"
	"github.com/aussiebroadwan/medrec/internal/medrec/metrics"
	"github.com/aussiebroadwan/medrec/internal/medrec/service"
	"github.com/aussiebroadwan/medrec/internal/medrec/store/drivers/sqlite"
	"github.com/aussiebroadwan/medrec/pkg/cryptox"
	"github.com/aussiebroadwan/medrec/pkg/medrecsdk"
	"github.com/aussiebroadwan/medrec/pkg/ratelimit"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testPassword = "Passw0rd!"
)

type testServer struct {
	URL     string
	Client  *medrecsdk.Client
	Metrics *metrics.Metrics
}

// newTestServer wires a router the way the application does, against an
// in-memory database. authTier overrides the auth rate limit tier when set.
func newTestServer(t *testing.T, authTier *ratelimit.Tier) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	m := metrics.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tier := ratelimit.Tier{MaxRequests: 1000, Window: time.Hour}
	if authTier != nil {
		tier = *authTier
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		BuildVersion: "test",
		Limiter:      ratelimit.New(ratelimit.NewMemoryStore()),
		Policy:       ratelimit.DefaultPolicy(ratelimit.UploadTier, tier, ratelimit.GeneralTier),
	}, st, m, logger)

	hasher := &cryptox.Hasher{
		Params: cryptox.Params{Memory: 1024, Iterations: 1, Parallelism: 1, KeyLength: 32, SaltLength: 16},
		Pepper: "test-pepper",
	}
	tokens, err := service.NewTokenService(service.TokenConfig{Secret: []byte(testSecret), Issuer: "medrec-test"})
	require.NoError(t, err)

	guard := service.NewAccessGuard(tokens, st)
	audit := service.NewAuditLogger(st, m, false)

	router.Guard = guard
	router.Audit = audit
	router.Query = service.NewAuditQueryEngine(st)
	router.Auth = &service.AuthService{Store: st, Hasher: hasher, Tokens: tokens, Guard: guard, Audit: audit, Metrics: m}
	router.Directory = &service.DirectoryService{Store: st, Audit: audit}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{URL: srv.URL, Client: medrecsdk.NewClient(srv.URL), Metrics: m}
}

// signup registers and logs in, returning an authenticated client.
func (s *testServer) signup(t *testing.T, req medrecsdk.RegisterRequest) (*medrecsdk.Client, *medrecsdk.UserResponse) {
	t.Helper()
	if req.Password == "" {
		req.Password = testPassword
	}
	if req.FirstName == "" {
		req.FirstName = "Test"
	}
	if req.LastName == "" {
		req.LastName = "User"
	}

	user, err := s.Client.Register(t.Context(), req)
	require.NoError(t, err)

	tok, err := s.Client.LoginJSON(t.Context(), req.Email, req.Password)
	require.NoError(t, err)
	return s.Client.WithToken(tok.AccessToken), user
}

func (s *testServer) scrape(t *testing.T) string {
	t.Helper()
	resp, err := http.Get(s.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestRegisterLoginAndMe(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := t.Context()

	user, err := s.Client.Register(ctx, medrecsdk.RegisterRequest{
		Email: "Owner@Clinic.example", Password: testPassword, FirstName: "Ada", LastName: "Owner",
		Role: "clinic_admin", ClinicName: "North", ClinicLicense: "LIC-1",
	})
	require.NoError(t, err)
	require.Equal(t, "Owner@Clinic.example", user.Email)
	require.Equal(t, "clinic_admin", user.Role)
	require.True(t, user.IsActive)

	tok, err := s.Client.Login(ctx, "owner@clinic.example", testPassword)
	require.NoError(t, err)
	require.Equal(t, "bearer", tok.TokenType)
	require.Equal(t, 30*60, tok.ExpiresIn)
	require.Equal(t, user.ID, tok.User.ID)

	me, err := s.Client.WithToken(tok.AccessToken).Me(ctx)
	require.NoError(t, err)
	require.Equal(t, user.ID, me.ID)
	require.NotEmpty(t, me.ClinicID)

	clinic, err := s.Client.WithToken(tok.AccessToken).GetClinic(ctx, me.ClinicID)
	require.NoError(t, err)
	require.Equal(t, "North", clinic.Name)
	require.Equal(t, user.ID, clinic.AdminUserID)
}

func TestRegisterErrors(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := t.Context()

	_, err := s.Client.Register(ctx, medrecsdk.RegisterRequest{
		Email: "weak@example.com", Password: "short", FirstName: "W", LastName: "P", Role: "patient",
	})
	require.ErrorIs(t, err, medrecsdk.ErrInvalidRequest)
	var apiErr *medrecsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Contains(t, apiErr.Description, "at least 8")

	s.signup(t, medrecsdk.RegisterRequest{Email: "dup@example.com", Role: "patient"})
	_, err = s.Client.Register(ctx, medrecsdk.RegisterRequest{
		Email: "DUP@example.com", Password: testPassword, FirstName: "D", LastName: "P", Role: "patient",
	})
	require.ErrorIs(t, err, medrecsdk.ErrEmailTaken)

	_, err = s.Client.Register(ctx, medrecsdk.RegisterRequest{
		Email: "late-admin@example.com", Password: testPassword, FirstName: "L", LastName: "A", Role: "admin",
	})
	require.ErrorIs(t, err, medrecsdk.ErrForbidden)
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := t.Context()

	admin, _ := s.signup(t, medrecsdk.RegisterRequest{Email: "root@example.com", Role: "admin"})
	_, patient := s.signup(t, medrecsdk.RegisterRequest{Email: "pat@example.com", Role: "patient"})

	_, err := s.Client.Login(ctx, "root@example.com", "Wr0ngPassword")
	require.ErrorIs(t, err, medrecsdk.ErrInvalidCredentials)
	var apiErr *medrecsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, "Incorrect email or password", apiErr.Description)

	_, err = s.Client.Login(ctx, "ghost@example.com", "Wr0ngPassword")
	require.ErrorIs(t, err, medrecsdk.ErrInvalidCredentials)

	_, err = admin.SetUserActive(ctx, patient.ID, false)
	require.NoError(t, err)
	_, err = s.Client.LoginJSON(ctx, "pat@example.com", testPassword)
	require.ErrorIs(t, err, medrecsdk.ErrInactiveUser)

	require.Contains(t, s.scrape(t), `medrec_login_attempts_total{result="failure"} 3`)
}

func TestDeactivatedTokenStopsWorking(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := t.Context()

	admin, _ := s.signup(t, medrecsdk.RegisterRequest{Email: "root@example.com", Role: "admin"})
	patientClient, patient := s.signup(t, medrecsdk.RegisterRequest{Email: "pat@example.com", Role: "patient"})

	_, err := patientClient.Me(ctx)
	require.NoError(t, err)

	updated, err := admin.SetUserActive(ctx, patient.ID, false)
	require.NoError(t, err)
	require.False(t, updated.IsActive)

	_, err = patientClient.Me(ctx)
	require.ErrorIs(t, err, medrecsdk.ErrInvalidToken)

	_, err = patientClient.SetUserActive(ctx, patient.ID, true)
	require.ErrorIs(t, err, medrecsdk.ErrInvalidToken)
}

func TestAuthentication_Rejections(t *testing.T) {
	s := newTestServer(t, nil)

	_, err := s.Client.Me(t.Context())
	require.ErrorIs(t, err, medrecsdk.ErrInvalidToken)

	req, err := http.NewRequest(http.MethodGet, s.URL+"/auth/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")

	require.Contains(t, s.scrape(t), `medrec_auth_failures_total{reason="malformed"} 1`)
}

func TestAuditEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := t.Context()

	admin, _ := s.signup(t, medrecsdk.RegisterRequest{Email: "root@example.com", Role: "admin"})
	patient, _ := s.signup(t, medrecsdk.RegisterRequest{Email: "pat@example.com", Role: "patient"})

	created, err := patient.CreateTestAuditLog(ctx)
	require.NoError(t, err)
	require.Equal(t, "Test audit log created", created.Message)
	require.NotEmpty(t, created.AuditLogID)

	mine, err := patient.MyActivity(ctx, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, mine.Page)
	require.Equal(t, 20, mine.PerPage)
	require.NotEmpty(t, mine.Logs)
	require.Equal(t, created.AuditLogID, mine.Logs[0].ID)
	require.JSONEq(t, `{"test":true,"endpoint":"/audit/test"}`, string(mine.Logs[0].Metadata))
	require.NotNil(t, mine.Logs[0].RequestPath)
	require.Equal(t, "/audit/test", *mine.Logs[0].RequestPath)

	list, err := admin.ListAuditLogs(ctx, medrecsdk.AuditLogQuery{Action: "view", PerPage: 5})
	require.NoError(t, err)
	require.EqualValues(t, 1, list.Total)
	require.Equal(t, 5, list.PerPage)

	// The listing above is itself on the trail now.
	list, err = admin.ListAuditLogs(ctx, medrecsdk.AuditLogQuery{Action: "view", EntityType: "system"})
	require.NoError(t, err)
	require.EqualValues(t, 1, list.Total)
	require.Equal(t, "audit_logs", *list.Logs[0].EntityName)
	require.JSONEq(t, `{"page":1,"per_page":5,"filters":{"action":"view"}}`, string(list.Logs[0].Metadata))

	stats, err := admin.AuditStats(ctx)
	require.NoError(t, err)
	require.Positive(t, stats.TotalLogs)
	require.Equal(t, stats.TotalLogs, stats.LogsToday)
	require.Contains(t, stats.TopActions, "view")
	require.NotEmpty(t, stats.RecentActivities)

	_, err = patient.AuditStats(ctx)
	require.ErrorIs(t, err, medrecsdk.ErrForbidden)
}

func TestAuditLogs_BadParameters(t *testing.T) {
	s := newTestServer(t, nil)
	admin, _ := s.signup(t, medrecsdk.RegisterRequest{Email: "root@example.com", Role: "admin"})

	for _, q := range []medrecsdk.AuditLogQuery{
		{PerPage: 101},
		{Action: "destroy"},
		{EntityType: "invoice"},
	} {
		_, err := admin.ListAuditLogs(t.Context(), q)
		require.ErrorIs(t, err, medrecsdk.ErrInvalidRequest, "%+v", q)
	}

	_, err := admin.MyActivity(t.Context(), 1, 51)
	require.ErrorIs(t, err, medrecsdk.ErrInvalidRequest)
}

func TestDirectoryEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := t.Context()

	owner, _ := s.signup(t, medrecsdk.RegisterRequest{
		Email: "owner@example.com", Role: "clinic_admin", ClinicName: "North", ClinicLicense: "LIC-1",
	})
	staffClient, staff := s.signup(t, medrecsdk.RegisterRequest{Email: "staff@example.com", Role: "clinic_staff"})
	patient, _ := s.signup(t, medrecsdk.RegisterRequest{Email: "pat@example.com", Role: "patient"})

	me, err := owner.Me(ctx)
	require.NoError(t, err)

	before, err := staffClient.Me(ctx)
	require.NoError(t, err)
	require.Empty(t, before.ClinicID)

	require.NoError(t, owner.AssignStaff(ctx, me.ClinicID, staff.ID))

	after, err := staffClient.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, me.ClinicID, after.ClinicID)

	err = staffClient.AssignStaff(ctx, me.ClinicID, staff.ID)
	require.ErrorIs(t, err, medrecsdk.ErrForbidden)

	_, err = owner.GetClinic(ctx, "no-such-clinic")
	require.ErrorIs(t, err, medrecsdk.ErrForbidden)

	profile, err := patient.MyPatientProfile(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, profile.ID)

	_, err = owner.MyPatientProfile(ctx)
	require.ErrorIs(t, err, medrecsdk.ErrForbidden)
}

func TestCSRF_RejectsUnauthenticatedWrites(t *testing.T) {
	s := newTestServer(t, nil)

	resp, err := http.Post(s.URL+"/audit/test", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "csrf_rejected")
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	// /auth/ is exempt so a browser can still log in.
	resp2, err := http.Post(s.URL+"/auth/login", "application/x-www-form-urlencoded", strings.NewReader("username=a%40b.c&password=x"))
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp2.StatusCode)

	require.Contains(t, s.scrape(t), "medrec_csrf_rejected_total 1")
}

func TestCSRF_GarbageBearerReachesAuthentication(t *testing.T) {
	s := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodPost, s.URL+"/audit/test", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer garbage")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "invalid_token")

	_, err = s.Client.WithToken("garbage").CreateTestAuditLog(t.Context())
	require.ErrorIs(t, err, medrecsdk.ErrInvalidToken)

	metrics := s.scrape(t)
	require.Contains(t, metrics, "medrec_csrf_rejected_total 0")
	require.Contains(t, metrics, `medrec_auth_failures_total{reason="malformed"} 2`)
}

func TestCSRF_RejectionDecodesAsSentinel(t *testing.T) {
	s := newTestServer(t, nil)

	_, err := s.Client.CreateTestAuditLog(t.Context())
	require.ErrorIs(t, err, medrecsdk.ErrCSRFRejected)

	var apiErr *medrecsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, medrecsdk.ErrCSRFRejected.Description, apiErr.Description)
}

func TestRateLimit_AuthTier(t *testing.T) {
	s := newTestServer(t, &ratelimit.Tier{MaxRequests: 5, Window: time.Hour})
	ctx := t.Context()

	for i := range 5 {
		_, err := s.Client.Login(ctx, "x@example.com", "Wr0ngPassword")
		require.ErrorIs(t, err, medrecsdk.ErrInvalidCredentials, "request %d", i+1)
	}

	_, err := s.Client.Login(ctx, "x@example.com", "Wr0ngPassword")
	require.ErrorIs(t, err, medrecsdk.ErrRateLimitExceeded)

	// Other classes have their own buckets.
	live, err := s.Client.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	require.Contains(t, s.scrape(t), `medrec_ratelimit_rejected_total{class="auth"} 1`)
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, nil)

	resp, err := http.Get(s.URL + "/livez")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	require.Equal(t, "1; mode=block", resp.Header.Get("X-XSS-Protection"))
	require.Equal(t, "max-age=31536000; includeSubDomains", resp.Header.Get("Strict-Transport-Security"))
	require.Equal(t, "default-src 'self'", resp.Header.Get("Content-Security-Policy"))
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	sw, err := http.Get(s.URL + "/swagger/index.html")
	require.NoError(t, err)
	defer sw.Body.Close()
	require.Contains(t, sw.Header.Get("Content-Security-Policy"), "'unsafe-inline'")
}

func TestReadyz(t *testing.T) {
	s := newTestServer(t, nil)

	ready, err := s.Client.GetReadiness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "test", ready.Version)
	require.Equal(t, "ok", ready.Checks.Database)

	body := s.scrape(t)
	require.Contains(t, body, `route="GET /readyz"`)
}
