package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownRole = errors.New("domain: unknown role")

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleClinicAdmin Role = "clinic_admin"
	RoleClinicStaff Role = "clinic_staff"
	RolePatient     Role = "patient"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleClinicAdmin, RoleClinicStaff, RolePatient}

// ParseRole accepts the canonical lower-case names only.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleClinicAdmin, RoleClinicStaff, RolePatient:
		return true
	default:
		return false
	}
}

// IsClinicScoped reports whether the role is confined to one clinic.
func (r Role) IsClinicScoped() bool {
	return r == RoleClinicAdmin || r == RoleClinicStaff
}

func (r Role) String() string { return string(r) }
