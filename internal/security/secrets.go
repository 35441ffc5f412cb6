package security

import (
	"errors"
	"os"
	"strings"
)

// ErrInvalidKey is returned when a signing secret is missing or unreadable.
var ErrInvalidKey = errors.New("invalid key")

const secretFilePrefix = "file:"

// LoadSecret returns the signing secret described by s. A value of the form
// "file:<path>" is read from disk (surrounding whitespace trimmed); anything
// else is used inline.
func LoadSecret(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	if !strings.HasPrefix(s, secretFilePrefix) {
		return []byte(s), nil
	}
	path := strings.TrimSpace(strings.TrimPrefix(s, secretFilePrefix))
	if path == "" {
		return nil, ErrInvalidKey
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	secret := strings.TrimSpace(string(b))
	if secret == "" {
		return nil, ErrInvalidKey
	}
	return []byte(secret), nil
}
