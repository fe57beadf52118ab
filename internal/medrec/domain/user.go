package domain

import "time"

type User struct {
	ID           string
	Email        string
	PasswordHash string // argon2id PHC string
	FirstName    string
	LastName     string
	Role         Role
	IsActive     bool
	IsVerified   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

type Clinic struct {
	ID            string
	Name          string
	LicenseNumber string
	AdminUserID   string
	CreatedAt     time.Time
}

// PatientProfile links a patient account to its clinic.
type PatientProfile struct {
	ID        string
	UserID    string
	ClinicID  string
	CreatedAt time.Time
}
