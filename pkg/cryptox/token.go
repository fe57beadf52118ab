package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Random secret sizes in bytes, before base64url encoding.
const (
	TokenSize128 = 16 // 22 encoded chars
	TokenSize256 = 32 // 43 encoded chars
)

// fingerprintLen is long enough to correlate log lines and short enough that
// the value is useless as a credential.
const fingerprintLen = 16

// GenerateToken returns size random bytes encoded as unpadded base64url. The
// pepper file and the login timing dummy are both minted with it.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MustGenerateToken panics when the system random source fails.
func MustGenerateToken(size int) string {
	token, err := GenerateToken(size)
	if err != nil {
		panic(err)
	}
	return token
}

// FingerprintToken identifies a bearer token in logs without revealing it.
// Equal tokens give equal fingerprints.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])[:fingerprintLen]
}
