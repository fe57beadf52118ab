package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	ErrInvalidPage  = errors.New("domain: invalid page")
	ErrNoVisibility = errors.New("domain: role has no audit visibility")
)

const (
	DefaultPerPage     = 20
	MaxPerPageLogs     = 100
	MaxPerPageActivity = 50
)

// PatientVisibleEntities are the entity types a patient may see in their own
// activity.
var PatientVisibleEntities = []EntityType{EntityUser, EntityDocument}

// AuditFilter narrows a listing. Zero values mean "no constraint".
type AuditFilter struct {
	Action     Action
	EntityType EntityType
	UserID     string
	ClinicID   string
	PatientID  string
	DateFrom   time.Time
	DateTo     time.Time
	Success    *bool
}

// Page is a validated 1-based offset page.
type Page struct {
	Number  int
	PerPage int
}

// NewPage validates number >= 1 and perPage within [1, maxPerPage].
func NewPage(number, perPage, maxPerPage int) (Page, error) {
	if number < 1 {
		return Page{}, fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidPage, number)
	}
	if perPage < 1 || perPage > maxPerPage {
		return Page{}, fmt.Errorf("%w: per_page must be in [1,%d], got %d", ErrInvalidPage, maxPerPage, perPage)
	}
	return Page{Number: number, PerPage: perPage}, nil
}

func (p Page) Offset() int { return (p.Number - 1) * p.PerPage }

// Scope is the part of the audit trail a principal may see. It is combined
// with any AuditFilter by intersection.
type Scope struct {
	Unrestricted bool
	ClinicID     string
	ActorID      string
	EntityTypes  []EntityType
}

// VisibilityFor derives the audit scope of p:
//
//   - admin sees everything
//   - clinic roles see their clinic, or only their own actions when no clinic
//     resolves
//   - patients see their own actions on the entity types in
//     PatientVisibleEntities
//
// Any other role gets ErrNoVisibility.
func VisibilityFor(p Principal) (Scope, error) {
	switch {
	case p.Role == RoleAdmin:
		return Scope{Unrestricted: true}, nil
	case p.Role.IsClinicScoped():
		if p.ClinicID != "" {
			return Scope{ClinicID: p.ClinicID}, nil
		}
		return Scope{ActorID: p.UserID}, nil
	case p.Role == RolePatient:
		return Scope{ActorID: p.UserID, EntityTypes: slices.Clone(PatientVisibleEntities)}, nil
	default:
		return Scope{}, fmt.Errorf("%w: %q", ErrNoVisibility, p.Role)
	}
}

// Allows reports whether e falls inside the scope.
func (s Scope) Allows(e AuditEntry) bool {
	if s.Unrestricted {
		return true
	}
	if s.ClinicID != "" && e.ClinicID != s.ClinicID {
		return false
	}
	if s.ActorID != "" && e.ActorID != s.ActorID {
		return false
	}
	if len(s.EntityTypes) > 0 && !slices.Contains(s.EntityTypes, e.EntityType) {
		return false
	}
	return s.ClinicID != "" || s.ActorID != ""
}

// CountBy is one bucket of a frequency table.
type CountBy struct {
	Key   string
	Count int64
}

// AuditStats summarises the trail for dashboards.
type AuditStats struct {
	Total       int64
	Today       int64
	ThisWeek    int64
	ThisMonth   int64
	TopActions  []CountBy
	TopEntities []CountBy
	Recent      []AuditEntry
}
