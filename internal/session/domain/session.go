package domain

import "time"

// ClientContext is the optional provenance captured when a session is issued.
type ClientContext struct {
	IP        string
	UserAgent string
	Platform  string
}

// Session is one issued refresh-token grant. TokenHash is the SHA-256 fingerprint of the
// refresh token; the raw token is never persisted.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	Client    ClientContext
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the session is usable at t: not revoked and not yet expired.
func (s *Session) Active(t time.Time) bool {
	return !s.Revoked && t.Before(s.ExpiresAt)
}
