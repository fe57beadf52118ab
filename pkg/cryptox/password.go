package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrMismatch      = errors.New("password does not match")
	ErrInvalidFormat = errors.New("invalid hash format")
)

// Params controls the Argon2id cost. The parameters are embedded in every
// digest, so changing them only affects newly hashed passwords.
type Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	KeyLength   uint32
	SaltLength  uint32
}

// DefaultParams follows the OWASP minimum for Argon2id (19 MiB, t=2, p=1).
var DefaultParams = Params{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	KeyLength:   32,
	SaltLength:  16,
}

// Hasher hashes and verifies passwords as PHC-format Argon2id strings. It has
// no mutable state and is safe for concurrent use.
type Hasher struct {
	Params Params
	Pepper string
}

// NewHasher returns a Hasher using DefaultParams and the given pepper.
func NewHasher(pepper string) *Hasher {
	return &Hasher{Params: DefaultParams, Pepper: pepper}
}

// Hash returns `$argon2id$v=19$m=..,t=..,p=..$salt$hash` for password. Each
// call draws a fresh salt, so hashing the same input twice yields different
// digests.
func (h *Hasher) Hash(password string) (string, error) {
	p := h.Params
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cryptox: read salt: %w", err)
	}

	key := argon2.IDKey([]byte(password+h.Pepper), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Iterations,
		p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify returns nil when password matches encodedHash, ErrMismatch when it
// does not, and an ErrInvalidFormat-wrapped error when the digest is unusable.
// The final comparison is constant time.
func (h *Hasher) Verify(password, encodedHash string) error {
	params, salt, expected, err := decodeHash(encodedHash)
	if err != nil {
		return err
	}

	computed := argon2.IDKey(
		[]byte(password+h.Pepper),
		salt,
		params.Iterations,
		params.Memory,
		params.Parallelism,
		uint32(len(expected)), // #nosec G115 - bounded by decodeHash
	)

	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return nil
	}
	return ErrMismatch
}

// Matches is Verify collapsed to a boolean.
func (h *Hasher) Matches(password, encodedHash string) bool {
	return h.Verify(password, encodedHash) == nil
}

// NeedsRehash reports whether encodedHash was produced with cost parameters
// other than the hasher's current ones. Unparseable digests need a rehash too.
func (h *Hasher) NeedsRehash(encodedHash string) bool {
	p, salt, key, err := decodeHash(encodedHash)
	if err != nil {
		return true
	}
	return p.Memory != h.Params.Memory ||
		p.Iterations != h.Params.Iterations ||
		p.Parallelism != h.Params.Parallelism ||
		uint32(len(key)) != h.Params.KeyLength || // #nosec G115 - bounded by decodeHash
		uint32(len(salt)) != h.Params.SaltLength // #nosec G115 - salt length comes from our own encoder
}

// decodeHash parses ["", "argon2id", "v=19", "m=X,t=Y,p=Z", salt, hash].
func decodeHash(encoded string) (Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return Params{}, nil, nil, fmt.Errorf("%w: expected 6 parts", ErrInvalidFormat)
	}
	if parts[1] != "argon2id" {
		return Params{}, nil, nil, fmt.Errorf("%w: not argon2id", ErrInvalidFormat)
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return Params{}, nil, nil, fmt.Errorf("%w: wrong version", ErrInvalidFormat)
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return Params{}, nil, nil, fmt.Errorf("%w: parameters: %v", ErrInvalidFormat, err)
	}
	if p.Memory == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return Params{}, nil, nil, fmt.Errorf("%w: zero cost parameter", ErrInvalidFormat)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return Params{}, nil, nil, fmt.Errorf("%w: salt", ErrInvalidFormat)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > 1024 {
		return Params{}, nil, nil, fmt.Errorf("%w: hash", ErrInvalidFormat)
	}

	return p, salt, key, nil
}
