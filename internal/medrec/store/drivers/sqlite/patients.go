package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/medrec/internal/medrec/domain"
)

type patientsRepo struct {
	db DBTX
}

func (r *patientsRepo) CreatePatientProfile(ctx context.Context, p domain.PatientProfile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO patient_profiles (id, user_id, clinic_id, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.UserID, mapStringNull(p.ClinicID), toUnix(p.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *patientsRepo) GetPatientProfileByUserID(ctx context.Context, userID string) (domain.PatientProfile, error) {
	var (
		p         domain.PatientProfile
		clinicID  sql.NullString
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, clinic_id, created_at FROM patient_profiles WHERE user_id = ?`, userID,
	).Scan(&p.ID, &p.UserID, &clinicID, &createdAt)
	if err != nil {
		return domain.PatientProfile{}, mapNotFound(err)
	}

	p.ClinicID = mapNullString(clinicID)
	p.CreatedAt = fromUnix(createdAt)
	return p, nil
}
