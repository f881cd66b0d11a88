package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// Opaque token value prefixes. Prefixes are cosmetic: they make leaked values
// easy to triage in logs and easy for secret scanners to match. They carry no
// security meaning and are included in the hashed value.
const (
	AccessTokenPrefix  = "spa_"
	RefreshTokenPrefix = "spr_"
	ClientSecretPrefix = "spc_"
)

// CryptoRandomBytes generates cryptographically secure random bytes
func CryptoRandomBytes(length int64) ([]byte, error) {
	buf := make([]byte, length)
	_, err := rand.Read(buf)
	return buf, err
}

// NewOpaqueToken returns prefix + hex of 32 cryptographically random bytes
// (256-bit entropy). The raw value is returned to the caller exactly once;
// only its SHA-256 hash is ever persisted.
func NewOpaqueToken(prefix string) (string, error) {
	raw, err := CryptoRandomBytes(32)
	if err != nil {
		return "", err
	}
	return prefix + hex.EncodeToString(raw), nil
}

// SHA256Hex returns the SHA-256 hash of s as a lowercase hex string.
// Intended for use with high-entropy, unguessable values (e.g., randomly
// generated tokens); for such inputs, a salt is not required for security.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
