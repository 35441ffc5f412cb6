package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Fingerprint returns a hex-encoded SHA-256 of value. Used wherever a token or
// credential hash must be referenced (logs, audit metadata, reset-token binding)
// without exposing the value itself.
func Fingerprint(value string) string {
	h := sha256.Sum256([]byte(value))
	return hex.EncodeToString(h[:])
}

// FingerprintEqual performs constant-time comparison of value's fingerprint
// with stored. Returns false for empty inputs.
func FingerprintEqual(value, stored string) bool {
	if value == "" || stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(Fingerprint(value)), []byte(stored)) == 1
}
