package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/medrec/pkg/jwtx"
)

// TokenConfig configures a TokenService.
type TokenConfig struct {
	Secret    []byte
	Algorithm string // HS256 when empty
	Issuer    string
	AccessTTL time.Duration // jwtx.DefaultAccessTokenTTL when zero
	Leeway    time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// TokenService issues and verifies access tokens. It keeps no state beyond
// its keys, so it is safe for concurrent use.
type TokenService struct {
	Signer    jwtx.Signer
	Verifier  jwtx.Verifier
	Issuer    string
	AccessTTL time.Duration
	Now       func() time.Time
}

// NewTokenService validates cfg and builds the signer/verifier pair. A missing
// or short secret and an unsupported algorithm are configuration errors.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	alg := strings.TrimSpace(cfg.Algorithm)
	if alg == "" {
		alg = "HS256"
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = jwtx.DefaultAccessTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	signer, err := jwtx.NewSignerHMAC(alg, cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("%w: token signer: %w", ErrConfiguration, err)
	}
	verifier, err := jwtx.NewVerifierHMAC(alg, cfg.Secret, jwtx.VerifyOptions{
		Issuer: cfg.Issuer,
		Leeway: cfg.Leeway,
		Now:    cfg.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: token verifier: %w", ErrConfiguration, err)
	}

	return &TokenService{
		Signer:    signer,
		Verifier:  verifier,
		Issuer:    cfg.Issuer,
		AccessTTL: cfg.AccessTTL,
		Now:       cfg.Now,
	}, nil
}

// Issue mints a token for subject. A non-positive ttl means AccessTTL.
func (s *TokenService) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(subject) == "" {
		return "", time.Time{}, fmt.Errorf("%w: empty subject", ErrInvalidRequest)
	}
	if ttl <= 0 {
		ttl = s.AccessTTL
	}

	claims := jwtx.NewAccessClaims(subject, s.Issuer, ttl, s.Now())
	token, err := s.Signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return token, claims.ExpiresAt.Time, nil
}

// Verify checks token and returns its claims. Failures are ErrTokenMalformed,
// ErrTokenExpired or ErrTokenInvalid, all of which wrap ErrUnauthenticated.
func (s *TokenService) Verify(token string) (jwtx.Claims, error) {
	claims, err := s.Verifier.Verify(token)
	if err == nil {
		return claims, nil
	}

	switch {
	case errors.Is(err, jwtx.ErrMalformed):
		return jwtx.Claims{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	case errors.Is(err, jwtx.ErrExpired):
		return jwtx.Claims{}, fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return jwtx.Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}
