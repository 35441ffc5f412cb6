package security

import "time"

// Secrets for unit tests only. Do not use in production.
const (
	testAccessSecret  = "test-access-secret-0123456789abcdef"
	testRefreshSecret = "test-refresh-secret-fedcba9876543210"
)

// NewTestTokenProvider returns a TokenProvider using fixed test secrets and the
// default lifetimes. opts may inject a clock. For unit tests only.
func NewTestTokenProvider(opts ...TokenOption) (*TokenProvider, error) {
	return NewTokenProvider(TokenConfig{
		AccessSecret:  []byte(testAccessSecret),
		RefreshSecret: []byte(testRefreshSecret),
		Issuer:        "test-issuer",
		Audience:      "test-audience",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}, opts...)
}
