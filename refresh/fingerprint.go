package refresh

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Fingerprint returns the hex SHA-256 digest of token.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Matches reports whether token hashes to the stored fingerprint.
func Matches(token, fingerprint string) bool {
	if len(fingerprint) != sha256.Size*2 {
		return false
	}
	computed := Fingerprint(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(fingerprint)) == 1
}
