package domain

// Principal is the identity and scope resolved for one request. ClinicID is
// empty when a clinic-scoped account has no resolvable clinic, and PatientID
// is only set for patients with a profile.
type Principal struct {
	UserID    string
	Email     string
	Role      Role
	ClinicID  string
	PatientID string
	Active    bool
}

// Resource describes what an operation touches, for scope checks.
type Resource struct {
	Type        EntityType
	ID          string
	ClinicID    string
	PatientID   string
	OwnerUserID string
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// CanSeeClinic reports whether p may read data belonging to clinicID.
// Clinic roles without a resolved clinic see no clinic at all.
func (p Principal) CanSeeClinic(clinicID string) bool {
	switch {
	case p.Role == RoleAdmin:
		return true
	case p.Role.IsClinicScoped():
		return p.ClinicID != "" && clinicID == p.ClinicID
	default:
		return false
	}
}

// CanSeePatient reports whether p may read the patient patientID, who is
// registered at clinicID.
func (p Principal) CanSeePatient(patientID, clinicID string) bool {
	switch {
	case p.Role == RoleAdmin:
		return true
	case p.Role.IsClinicScoped():
		return p.CanSeeClinic(clinicID)
	case p.Role == RolePatient:
		return p.PatientID != "" && patientID == p.PatientID
	default:
		return false
	}
}

// CanActOn reports whether p may act on r. Clinic roles need r to belong to
// their clinic; patients need r to be their own account or their own patient
// record.
func (p Principal) CanActOn(r Resource) bool {
	switch {
	case p.Role == RoleAdmin:
		return true
	case p.Role.IsClinicScoped():
		return p.CanSeeClinic(r.ClinicID)
	case p.Role == RolePatient:
		if r.OwnerUserID != "" && r.OwnerUserID == p.UserID {
			return true
		}
		return p.PatientID != "" && r.PatientID == p.PatientID
	default:
		return false
	}
}
