package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrUnknownAction     = errors.New("domain: unknown audit action")
	ErrUnknownEntityType = errors.New("domain: unknown entity type")
)

// Action is what happened.
type Action string

const (
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionView     Action = "view"
	ActionDownload Action = "download"
	ActionLogin    Action = "login"
	ActionLogout   Action = "logout"
	ActionUpload   Action = "upload"
	ActionAssign   Action = "assign"
	ActionProcess  Action = "process"
	ActionExport   Action = "export"
)

var Actions = []Action{
	ActionCreate, ActionUpdate, ActionDelete, ActionView, ActionDownload, ActionLogin,
	ActionLogout, ActionUpload, ActionAssign, ActionProcess, ActionExport,
}

func ParseAction(s string) (Action, error) {
	for _, a := range Actions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// EntityType is what it happened to.
type EntityType string

const (
	EntityUser       EntityType = "user"
	EntityPatient    EntityType = "patient"
	EntityDocument   EntityType = "document"
	EntityClinic     EntityType = "clinic"
	EntityExtraction EntityType = "extraction"
	EntitySystem     EntityType = "system"
)

var EntityTypes = []EntityType{
	EntityUser, EntityPatient, EntityDocument, EntityClinic, EntityExtraction, EntitySystem,
}

func ParseEntityType(s string) (EntityType, error) {
	for _, e := range EntityTypes {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEntityType, s)
}

// AuditEntry is one immutable row of the audit trail. Actor fields are
// snapshots taken at write time and stay valid after the account is gone.
// ActorID is empty for anonymous events such as a failed login.
type AuditEntry struct {
	ID           string
	ActorID      string
	ActorEmail   string
	ActorRole    Role
	Action       Action
	EntityType   EntityType
	EntityID     string
	EntityName   string
	ClinicID     string
	PatientID    string
	Description  string
	Changes      Fields
	Metadata     Fields
	IPAddress    string
	UserAgent    string
	RequestPath  string
	Success      bool
	ErrorMessage string
	CreatedAt    time.Time
}

// AuditEvent is the input to the audit logger. Actor is nil for anonymous
// events. Request, when set, supplies client address, user agent and path;
// otherwise they are taken from the request info on the context.
type AuditEvent struct {
	Actor        *Principal
	Action       Action
	EntityType   EntityType
	EntityID     string
	EntityName   string
	Description  string
	ClinicID     string
	PatientID    string
	Changes      Fields
	Metadata     Fields
	Request      *http.Request
	Success      bool
	ErrorMessage string
}

// Well-known metadata shapes for the events the service emits itself.

// LoginMetadata accompanies every login attempt.
type LoginMetadata struct {
	Method string // "form" or "json"
	Email  string // attempted email, only on failure
	Reason string // failure reason, only on failure
}

func (m LoginMetadata) Fields() Fields {
	f := F("method", m.Method)
	if m.Email != "" {
		f = f.Set("attempted_email", m.Email)
	}
	if m.Reason != "" {
		f = f.Set("reason", m.Reason)
	}
	return f
}

// PageMetadata records which page of a listing was viewed.
type PageMetadata struct {
	Page    int
	PerPage int
	Filters Fields
}

func (m PageMetadata) Fields() Fields {
	f := F("page", m.Page, "per_page", m.PerPage)
	if len(m.Filters) > 0 {
		f = f.Set("filters", m.Filters)
	}
	return f
}

// TestMetadata marks synthetic entries written through the test endpoint.
type TestMetadata struct {
	Endpoint string
}

func (m TestMetadata) Fields() Fields {
	return F("test", true, "endpoint", m.Endpoint)
}
