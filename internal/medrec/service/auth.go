package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/aussiebroadwan/medrec/internal/medrec/domain"
	"github.com/aussiebroadwan/medrec/internal/medrec/store"
	"github.com/aussiebroadwan/medrec/pkg/cryptox"
	"github.com/aussiebroadwan/medrec/pkg/idx"
	"github.com/aussiebroadwan/medrec/pkg/slogx"
)

const MinPasswordLength = 8

// Login methods recorded in audit metadata.
const (
	LoginMethodForm = "form"
	LoginMethodJSON = "json"
)

// LoginMetrics receives the outcome of every login attempt.
type LoginMetrics interface {
	LoginAttempt(success bool)
}

// AuthService handles registration, password login and account activation.
type AuthService struct {
	Store   store.Store
	Hasher  *cryptox.Hasher
	Tokens  *TokenService
	Guard   *AccessGuard
	Audit   *AuditLogger
	Metrics LoginMetrics

	dummyOnce sync.Once
	dummyHash string
}

// RegisterInput is a self-registration request. Clinic fields are required
// for clinic admins and ignored otherwise.
type RegisterInput struct {
	Email         string
	Password      string
	FirstName     string
	LastName      string
	Role          string
	ClinicName    string
	ClinicLicense string
}

// RegisterResult carries the created user and, for clinic admins, the new
// clinic.
type RegisterResult struct {
	User   domain.User
	Clinic *domain.Clinic
}

// LoginResult is a successful login.
type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	ExpiresIn   time.Duration
	User        domain.User
	Principal   domain.Principal
}

// Register creates an account. The admin role can only be claimed while the
// system has no users at all; after that admins are made, not registered.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	l := slogx.FromContext(ctx)

	role, email, err := validateRegistration(&in)
	if err != nil {
		return RegisterResult{}, err
	}

	if role == domain.RoleAdmin {
		empty, err := s.Store.Users().IsEmpty(ctx)
		if err != nil {
			return RegisterResult{}, err
		}
		if !empty {
			l.Warn("admin self-registration refused", "email", email)
			return RegisterResult{}, fmt.Errorf("%w: admin accounts cannot self-register", ErrForbidden)
		}
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.NewAt(now).String(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	var result RegisterResult

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		create := tx.Users().CreateUser
		if role == domain.RoleAdmin {
			// The early IsEmpty check only spares a hash; this one decides.
			create = tx.Users().CreateFirstUser
		}
		if err := create(ctx, user); err != nil {
			switch {
			case errors.Is(err, store.ErrAlreadyExists):
				return ErrEmailTaken
			case errors.Is(err, store.ErrNotEmpty):
				l.Warn("admin self-registration lost the race", "email", email)
				return fmt.Errorf("%w: admin accounts cannot self-register", ErrForbidden)
			}
			return err
		}

		switch role {
		case domain.RoleClinicAdmin:
			clinic := domain.Clinic{
				ID:            idx.New().String(),
				Name:          in.ClinicName,
				LicenseNumber: in.ClinicLicense,
				AdminUserID:   user.ID,
				CreatedAt:     now,
			}
			if err := tx.Clinics().CreateClinic(ctx, clinic); err != nil {
				return fmt.Errorf("create clinic: %w", err)
			}
			result.Clinic = &clinic
		case domain.RolePatient:
			profile := domain.PatientProfile{ID: idx.New().String(), UserID: user.ID, CreatedAt: now}
			if err := tx.Patients().CreatePatientProfile(ctx, profile); err != nil {
				return fmt.Errorf("create patient profile: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return RegisterResult{}, err
	}
	result.User = user

	actor := domain.Principal{UserID: user.ID, Email: user.Email, Role: user.Role, Active: true}
	ev := domain.AuditEvent{
		Actor:       &actor,
		Action:      domain.ActionCreate,
		EntityType:  domain.EntityUser,
		EntityID:    user.ID,
		EntityName:  user.FullName(),
		Description: "User registered",
		Metadata:    domain.F("role", string(role)),
		Success:     true,
	}
	if result.Clinic != nil {
		ev.ClinicID = result.Clinic.ID
		ev.Metadata = ev.Metadata.Set("clinic_name", result.Clinic.Name)
	}
	if _, err := s.Audit.Record(ctx, ev); err != nil {
		l.Warn("registration audit failed", "user_id", user.ID, "err", err)
	}

	l.Info("user registered", "user_id", user.ID, "role", role)
	return result, nil
}

func validateRegistration(in *RegisterInput) (domain.Role, string, error) {
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil || addr.Name != "" {
		return "", "", fmt.Errorf("%w: invalid email", ErrInvalidRequest)
	}

	if err := ValidatePassword(in.Password); err != nil {
		return "", "", err
	}

	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.FirstName == "" || in.LastName == "" {
		return "", "", fmt.Errorf("%w: first and last name are required", ErrInvalidRequest)
	}

	if role == domain.RoleClinicAdmin {
		in.ClinicName = strings.TrimSpace(in.ClinicName)
		in.ClinicLicense = strings.TrimSpace(in.ClinicLicense)
		if in.ClinicName == "" || in.ClinicLicense == "" {
			return "", "", fmt.Errorf("%w: clinic name and license required for clinic admin", ErrInvalidRequest)
		}
	}

	return role, addr.Address, nil
}

// ValidatePassword enforces the password policy: at least
// MinPasswordLength characters with an upper-case letter, a lower-case
// letter and a digit.
func ValidatePassword(pw string) error {
	if len(pw) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidRequest, MinPasswordLength)
	}

	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return fmt.Errorf("%w: password needs upper-case, lower-case and digit characters", ErrInvalidRequest)
	}
	return nil
}

// Login checks the credential and issues an access token. Unknown email and
// wrong password produce the same ErrInvalidCredentials after the same
// amount of hashing work. Every attempt is audited; failures anonymously.
func (s *AuthService) Login(ctx context.Context, email, password, method string) (LoginResult, error) {
	l := slogx.FromContext(ctx)
	email = strings.TrimSpace(email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, err
		}
		_ = s.Hasher.Verify(password, s.dummy())
		s.loginFailed(ctx, email, method, ErrInvalidCredentials)
		return LoginResult{}, ErrInvalidCredentials
	}

	if err := s.Hasher.Verify(password, user.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrMismatch) {
			l.Error("stored password hash unusable", "user_id", user.ID, "err", err)
		}
		s.loginFailed(ctx, email, method, ErrInvalidCredentials)
		return LoginResult{}, ErrInvalidCredentials
	}

	if !user.IsActive {
		s.loginFailed(ctx, email, method, ErrInactiveUser)
		return LoginResult{}, ErrInactiveUser
	}

	if s.Hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.ID, password)
	}

	p, err := s.Guard.Resolve(ctx, user)
	if err != nil {
		return LoginResult{}, err
	}

	token, expiresAt, err := s.Tokens.Issue(user.ID, 0)
	if err != nil {
		return LoginResult{}, err
	}

	if s.Metrics != nil {
		s.Metrics.LoginAttempt(true)
	}
	if _, err := s.Audit.RecordLogin(ctx, &p, domain.LoginMetadata{Method: method}); err != nil {
		l.Warn("login audit failed", "user_id", user.ID, "err", err)
	}

	l.Info("login succeeded", "user_id", user.ID, "method", method)
	return LoginResult{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		ExpiresIn:   s.Tokens.AccessTTL,
		User:        user,
		Principal:   p,
	}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, email, method string, reason error) {
	if s.Metrics != nil {
		s.Metrics.LoginAttempt(false)
	}
	slogx.FromContext(ctx).Info("login failed", "method", method, "reason", reason.Error())

	md := domain.LoginMetadata{Method: method, Email: email, Reason: reason.Error()}
	if _, err := s.Audit.RecordLogin(ctx, nil, md); err != nil {
		slogx.FromContext(ctx).Warn("login audit failed", "err", err)
	}
}

// rehash upgrades a digest made with outdated cost parameters. Failure only
// costs another rehash attempt at the next login.
func (s *AuthService) rehash(ctx context.Context, userID, password string) {
	l := slogx.FromContext(ctx)

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		l.Warn("password rehash failed", "user_id", userID, "err", err)
		return
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
		l.Warn("password rehash not stored", "user_id", userID, "err", err)
		return
	}
	l.Info("password hash upgraded", "user_id", userID)
}

// dummy is a digest with the current parameters, verified against when the
// email is unknown.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.Hasher.Hash(cryptox.MustGenerateToken(cryptox.TokenSize128))
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// SetActive enables or disables userID. Only admins may do it, and not to
// themselves.
func (s *AuthService) SetActive(ctx context.Context, actor domain.Principal, userID string, active bool) (domain.User, error) {
	if err := Check(actor, AnyActive(), RequireRole(domain.RoleAdmin)); err != nil {
		return domain.User{}, err
	}
	if userID == actor.UserID {
		return domain.User{}, fmt.Errorf("%w: cannot change own activation", ErrInvalidRequest)
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if user.IsActive == active {
		return user, nil
	}

	if err := s.Store.Users().SetActive(ctx, userID, active); err != nil {
		return domain.User{}, err
	}
	previous := user.IsActive
	user.IsActive = active

	description := "User deactivated"
	if active {
		description = "User activated"
	}
	_, err = s.Audit.Record(ctx, domain.AuditEvent{
		Actor:       &actor,
		Action:      domain.ActionUpdate,
		EntityType:  domain.EntityUser,
		EntityID:    user.ID,
		EntityName:  user.FullName(),
		Description: description,
		Changes:     domain.F("is_active", domain.F("old", previous, "new", active)),
		Success:     true,
	})
	if err != nil {
		slogx.FromContext(ctx).Warn("activation audit failed", "user_id", user.ID, "err", err)
	}
	return user, nil
}
