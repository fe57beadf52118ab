package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/medrec/internal/medrec/domain"
)

type clinicsRepo struct {
	db DBTX
}

func (r *clinicsRepo) CreateClinic(ctx context.Context, c domain.Clinic) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO clinics (id, name, license_number, admin_user_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.LicenseNumber, mapStringNull(c.AdminUserID), toUnix(c.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *clinicsRepo) GetClinicByID(ctx context.Context, id string) (domain.Clinic, error) {
	var (
		c         domain.Clinic
		adminID   sql.NullString
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, license_number, admin_user_id, created_at FROM clinics WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.LicenseNumber, &adminID, &createdAt)
	if err != nil {
		return domain.Clinic{}, mapNotFound(err)
	}

	c.AdminUserID = mapNullString(adminID)
	c.CreatedAt = fromUnix(createdAt)
	return c, nil
}

func (r *clinicsRepo) AddMember(ctx context.Context, clinicID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO clinic_members (user_id, clinic_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET clinic_id = excluded.clinic_id`,
		userID, clinicID, toUnix(time.Now()),
	)
	return err
}

func (r *clinicsRepo) ClinicIDForUser(ctx context.Context, userID string) (string, error) {
	var clinicID string
	err := r.db.QueryRowContext(ctx, `
		SELECT clinic_id FROM (
			SELECT clinic_id, 0 AS pref FROM clinic_members WHERE user_id = ?
			UNION ALL
			SELECT id AS clinic_id, 1 AS pref FROM clinics WHERE admin_user_id = ?
		)
		ORDER BY pref, clinic_id
		LIMIT 1`,
		userID, userID,
	).Scan(&clinicID)
	if err != nil {
		return "", mapNotFound(err)
	}
	return clinicID, nil
}
