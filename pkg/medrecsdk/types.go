package medrecsdk

import (
	"encoding/json"
	"time"
)

// ErrorResponse is the body of every error the server writes.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// ============================================================================
// Authentication
// ============================================================================

// RegisterRequest is the body of POST /auth/register. ClinicName and
// ClinicLicense are required for the clinic_admin role.
type RegisterRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Role          string `json:"role" enums:"admin,clinic_admin,clinic_staff,patient"`
	ClinicName    string `json:"clinic_name,omitempty"`
	ClinicLicense string `json:"clinic_license,omitempty"`
}

// LoginRequest is the body of POST /auth/login/json.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by both login endpoints.
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"`
	User        UserResponse `json:"user"`
}

type UserResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Role       string    `json:"role"`
	IsActive   bool      `json:"is_active"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// MeResponse is the authenticated user together with the scope the server
// resolved for them.
type MeResponse struct {
	UserResponse
	ClinicID  string `json:"clinic_id,omitempty"`
	PatientID string `json:"patient_id,omitempty"`
}

// SetActiveRequest is the body of PATCH /users/{id}/active.
type SetActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// ============================================================================
// Directory
// ============================================================================

type ClinicResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	LicenseNumber string    `json:"license_number"`
	AdminUserID   string    `json:"admin_user_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type PatientProfileResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ClinicID  string    `json:"clinic_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AssignStaffRequest is the body of POST /clinics/{id}/members.
type AssignStaffRequest struct {
	UserID string `json:"user_id"`
}

// ============================================================================
// Audit
// ============================================================================

// AuditLogResponse is one audit entry. The user_* fields describe the actor
// as it was when the entry was written and are absent for anonymous events.
type AuditLogResponse struct {
	ID           string          `json:"id"`
	UserID       *string         `json:"user_id"`
	UserEmail    *string         `json:"user_email"`
	UserRole     *string         `json:"user_role"`
	Action       string          `json:"action"`
	EntityType   string          `json:"entity_type"`
	EntityID     *string         `json:"entity_id"`
	EntityName   *string         `json:"entity_name"`
	ClinicID     *string         `json:"clinic_id"`
	PatientID    *string         `json:"patient_id"`
	Description  string          `json:"description"`
	Changes      json.RawMessage `json:"changes" swaggertype:"object"`
	Metadata     json.RawMessage `json:"metadata" swaggertype:"object"`
	IPAddress    *string         `json:"ip_address"`
	UserAgent    *string         `json:"user_agent"`
	RequestPath  *string         `json:"request_path"`
	Success      bool            `json:"success"`
	ErrorMessage *string         `json:"error_message"`
	CreatedAt    time.Time       `json:"created_at"`
}

type AuditLogListResponse struct {
	Logs    []AuditLogResponse `json:"logs"`
	Total   int64              `json:"total"`
	Page    int                `json:"page"`
	PerPage int                `json:"per_page"`
}

type AuditStatsResponse struct {
	TotalLogs        int64              `json:"total_logs"`
	LogsToday        int64              `json:"logs_today"`
	LogsThisWeek     int64              `json:"logs_this_week"`
	LogsThisMonth    int64              `json:"logs_this_month"`
	TopActions       map[string]int64   `json:"top_actions"`
	TopEntities      map[string]int64   `json:"top_entities"`
	RecentActivities []AuditLogResponse `json:"recent_activities"`
}

type TestAuditResponse struct {
	Message    string `json:"message"`
	AuditLogID string `json:"audit_log_id"`
}

// AuditLogQuery holds the filters of GET /audit/logs. Zero values are not
// sent.
type AuditLogQuery struct {
	Page       int
	PerPage    int
	Action     string
	EntityType string
	UserID     string
	ClinicID   string
	PatientID  string
	DateFrom   time.Time
	DateTo     time.Time
	Success    *bool
}

// ============================================================================
// Health
// ============================================================================

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database    string `json:"database"`
	RateLimiter string `json:"rate_limiter"`
}
