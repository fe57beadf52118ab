package http

import (
	"encoding/json"

	"github.com/aussiebroadwan/medrec/internal/medrec/domain"
	"github.com/aussiebroadwan/medrec/pkg/medrecsdk"
)

func toUserResponse(u domain.User) medrecsdk.UserResponse {
	return medrecsdk.UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Role:       string(u.Role),
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}

func toClinicResponse(c domain.Clinic) medrecsdk.ClinicResponse {
	return medrecsdk.ClinicResponse{
		ID:            c.ID,
		Name:          c.Name,
		LicenseNumber: c.LicenseNumber,
		AdminUserID:   c.AdminUserID,
		CreatedAt:     c.CreatedAt,
	}
}

func toPatientResponse(p domain.PatientProfile) medrecsdk.PatientProfileResponse {
	return medrecsdk.PatientProfileResponse{
		ID:        p.ID,
		UserID:    p.UserID,
		ClinicID:  p.ClinicID,
		CreatedAt: p.CreatedAt,
	}
}

func toAuditLogResponse(e domain.AuditEntry) medrecsdk.AuditLogResponse {
	out := medrecsdk.AuditLogResponse{
		ID:           e.ID,
		UserID:       opt(e.ActorID),
		UserEmail:    opt(e.ActorEmail),
		UserRole:     opt(string(e.ActorRole)),
		Action:       string(e.Action),
		EntityType:   string(e.EntityType),
		EntityID:     opt(e.EntityID),
		EntityName:   opt(e.EntityName),
		ClinicID:     opt(e.ClinicID),
		PatientID:    opt(e.PatientID),
		Description:  e.Description,
		IPAddress:    opt(e.IPAddress),
		UserAgent:    opt(e.UserAgent),
		RequestPath:  opt(e.RequestPath),
		Success:      e.Success,
		ErrorMessage: opt(e.ErrorMessage),
		CreatedAt:    e.CreatedAt,
	}
	out.Changes = rawFields(e.Changes)
	out.Metadata = rawFields(e.Metadata)
	return out
}

func toAuditLogs(entries []domain.AuditEntry) []medrecsdk.AuditLogResponse {
	out := make([]medrecsdk.AuditLogResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toAuditLogResponse(e))
	}
	return out
}

func countMap(buckets []domain.CountBy) map[string]int64 {
	out := make(map[string]int64, len(buckets))
	for _, b := range buckets {
		out[b.Key] = b.Count
	}
	return out
}

// opt maps "" to a JSON null.
func opt(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// rawFields keeps the stored key order on the wire. Values that cannot be
// encoded are dropped rather than failing the whole listing.
func rawFields(f domain.Fields) json.RawMessage {
	if f == nil {
		return nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil
	}
	return b
}
