package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/medrec/internal/medrec/domain"
	"github.com/aussiebroadwan/medrec/internal/medrec/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/aussiebroadwan/medrec/internal/medrec/service"

// Denylist lets a deployment revoke individual tokens by jti. There is no
// built-in implementation; a nil Denylist accepts every valid token.
type Denylist interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AccessGuard turns a bearer token into a Principal and evaluates
// requirements against it.
type AccessGuard struct {
	Tokens   *TokenService
	Store    store.Store
	Denylist Denylist
	Tracer   trace.Tracer
}

func NewAccessGuard(tokens *TokenService, st store.Store) *AccessGuard {
	return &AccessGuard{
		Tokens: tokens,
		Store:  st,
		Tracer: otel.Tracer(tracerName),
	}
}

// Authenticate verifies token and resolves the principal from the store. The
// role and scope always come from the current user row, never from the token.
func (g *AccessGuard) Authenticate(ctx context.Context, token string) (p domain.Principal, err error) {
	ctx, span := g.startSpan(ctx, "AccessGuard.Authenticate")
	defer func() { endSpan(span, err) }()

	claims, err := g.Tokens.Verify(token)
	if err != nil {
		return domain.Principal{}, err
	}

	if g.Denylist != nil && claims.ID != "" {
		revoked, err := g.Denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return domain.Principal{}, fmt.Errorf("check denylist: %w", err)
		}
		if revoked {
			return domain.Principal{}, fmt.Errorf("%w: token revoked", ErrTokenInvalid)
		}
	}

	user, err := g.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Principal{}, fmt.Errorf("%w: unknown subject", ErrUnauthenticated)
		}
		return domain.Principal{}, err
	}
	if !user.IsActive {
		return domain.Principal{}, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrInactiveUser)
	}

	p, err = g.Resolve(ctx, user)
	if err != nil {
		return domain.Principal{}, err
	}

	span.SetAttributes(
		attribute.String("medrec.user_id", p.UserID),
		attribute.String("medrec.role", string(p.Role)),
	)
	return p, nil
}

// Resolve builds the principal for user, looking up its clinic and patient
// scope. A clinic account without a clinic resolves with an empty ClinicID.
func (g *AccessGuard) Resolve(ctx context.Context, user domain.User) (domain.Principal, error) {
	p := domain.Principal{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Active: user.IsActive,
	}

	switch {
	case user.Role.IsClinicScoped():
		clinicID, err := g.Store.Clinics().ClinicIDForUser(ctx, user.ID)
		switch {
		case err == nil:
			p.ClinicID = clinicID
		case !errors.Is(err, store.ErrNotFound):
			return domain.Principal{}, fmt.Errorf("resolve clinic: %w", err)
		}
	case user.Role == domain.RolePatient:
		profile, err := g.Store.Patients().GetPatientProfileByUserID(ctx, user.ID)
		switch {
		case err == nil:
			p.PatientID = profile.ID
			p.ClinicID = profile.ClinicID
		case !errors.Is(err, store.ErrNotFound):
			return domain.Principal{}, fmt.Errorf("resolve patient: %w", err)
		}
	}
	return p, nil
}

// Requirement is one condition a principal must meet.
type Requirement func(p domain.Principal) error

// AnyActive admits every active principal.
func AnyActive() Requirement {
	return func(p domain.Principal) error {
		if !p.Active {
			return fmt.Errorf("%w: inactive account", ErrForbidden)
		}
		return nil
	}
}

// RequireRole admits principals holding one of roles.
func RequireRole(roles ...domain.Role) Requirement {
	return func(p domain.Principal) error {
		for _, r := range roles {
			if p.Role == r {
				return nil
			}
		}
		return fmt.Errorf("%w: role %q not allowed", ErrForbidden, p.Role)
	}
}

// RequireResourceScope admits principals that may act on r.
func RequireResourceScope(r domain.Resource) Requirement {
	return func(p domain.Principal) error {
		if !p.CanActOn(r) {
			return fmt.Errorf("%w: %s %q out of scope", ErrForbidden, r.Type, r.ID)
		}
		return nil
	}
}

// Check evaluates reqs in order and returns the first failure.
func Check(p domain.Principal, reqs ...Requirement) error {
	for _, req := range reqs {
		if err := req(p); err != nil {
			return err
		}
	}
	return nil
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}

func (g *AccessGuard) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return startSpan(ctx, g.Tracer, name)
}

// startSpan falls back to a non-recording span when tracer is nil.
func startSpan(ctx context.Context, tracer trace.Tracer, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(context.Background())
	}
	return tracer.Start(ctx, name, opts...)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
