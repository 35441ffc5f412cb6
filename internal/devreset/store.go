// Package devreset keeps the most recent password-reset token per email in memory so local
// clients can complete the reset flow without email delivery (GET /dev/password-reset-token).
// It is never wired in production.
package devreset

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Store holds plain reset tokens by email for dev-only retrieval.
type Store interface {
	// Put stores token for email until expiresAt, replacing any earlier token.
	Put(ctx context.Context, email, token string, expiresAt time.Time)
	// Get returns the token for email if present and not expired.
	Get(ctx context.Context, email string) (token string, ok bool)
}

type entry struct {
	token     string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// Option customizes a MemoryStore.
type Option func(*MemoryStore)

// WithClock overrides the time used for expiry checks. It should match the clock that
// computed the expiresAt values passed to Put.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.nowF = now
		}
	}
}

// NewMemoryStore returns a new in-memory dev reset-token store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		m:    make(map[string]entry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func key(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Put stores token for email until expiresAt.
func (s *MemoryStore) Put(ctx context.Context, email, token string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key(email)] = entry{token: token, expiresAt: expiresAt}
}

// Get returns the token for email if present and not expired. Expired entries are dropped.
func (s *MemoryStore) Get(ctx context.Context, email string) (string, bool) {
	k := key(email)
	s.mu.RLock()
	e, ok := s.m[k]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, k)
		s.mu.Unlock()
		return "", false
	}
	return e.token, true
}
