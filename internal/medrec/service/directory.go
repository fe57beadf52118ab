package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/medrec/internal/medrec/domain"
	"github.com/aussiebroadwan/medrec/internal/medrec/store"
	"github.com/aussiebroadwan/medrec/pkg/slogx"
)

// DirectoryService exposes the clinic and patient records principals are
// resolved from, under the same scope rules as everything else.
type DirectoryService struct {
	Store store.Store
	Audit *AuditLogger
}

// GetClinic returns clinic id if p may see it.
func (s *DirectoryService) GetClinic(ctx context.Context, p domain.Principal, id string) (domain.Clinic, error) {
	res := domain.Resource{Type: domain.EntityClinic, ID: id, ClinicID: id}
	if err := Check(p, AnyActive(), RequireResourceScope(res)); err != nil {
		return domain.Clinic{}, err
	}
	return s.Store.Clinics().GetClinicByID(ctx, id)
}

// AssignStaff moves a clinic_staff account into clinicID. Admins may assign
// to any clinic, clinic admins only to their own.
func (s *DirectoryService) AssignStaff(ctx context.Context, p domain.Principal, clinicID, userID string) error {
	res := domain.Resource{Type: domain.EntityClinic, ID: clinicID, ClinicID: clinicID}
	err := Check(p,
		AnyActive(),
		RequireRole(domain.RoleAdmin, domain.RoleClinicAdmin),
		RequireResourceScope(res),
	)
	if err != nil {
		return err
	}

	clinic, err := s.Store.Clinics().GetClinicByID(ctx, clinicID)
	if err != nil {
		return err
	}
	staff, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if staff.Role != domain.RoleClinicStaff {
		return fmt.Errorf("%w: only clinic_staff accounts can be assigned", ErrInvalidRequest)
	}

	previous, err := s.Store.Clinics().ClinicIDForUser(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if previous == clinicID {
		return nil
	}

	if err := s.Store.Clinics().AddMember(ctx, clinicID, userID); err != nil {
		return err
	}

	changes := domain.F("clinic_id", domain.F("old", nullable(previous), "new", clinicID))
	_, err = s.Audit.Record(ctx, domain.AuditEvent{
		Actor:       &p,
		Action:      domain.ActionAssign,
		EntityType:  domain.EntityClinic,
		EntityID:    clinic.ID,
		EntityName:  clinic.Name,
		ClinicID:    clinic.ID,
		Description: "Staff assigned to clinic",
		Changes:     changes,
		Metadata:    domain.F("user_id", staff.ID, "user_email", staff.Email),
		Success:     true,
	})
	if err != nil {
		slogx.FromContext(ctx).Warn("assignment audit failed", "clinic_id", clinic.ID, "err", err)
	}
	return nil
}

// MyPatientProfile returns the patient record of a patient principal and
// records the view.
func (s *DirectoryService) MyPatientProfile(ctx context.Context, p domain.Principal) (domain.PatientProfile, error) {
	if err := Check(p, AnyActive(), RequireRole(domain.RolePatient)); err != nil {
		return domain.PatientProfile{}, err
	}

	profile, err := s.Store.Patients().GetPatientProfileByUserID(ctx, p.UserID)
	if err != nil {
		return domain.PatientProfile{}, err
	}

	res := domain.Resource{
		Type:        domain.EntityPatient,
		ID:          profile.ID,
		ClinicID:    profile.ClinicID,
		PatientID:   profile.ID,
		OwnerUserID: profile.UserID,
	}
	if err := Check(p, RequireResourceScope(res)); err != nil {
		return domain.PatientProfile{}, err
	}

	if _, err := s.Audit.RecordPatientAction(ctx, p, domain.ActionView, res, "Patient viewed own profile", nil); err != nil {
		slogx.FromContext(ctx).Warn("profile view audit failed", "patient_id", profile.ID, "err", err)
	}
	return profile, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
