// Package service implements the session token lifecycle: issuing access/refresh pairs,
// verifying them, revoking sessions and rotating refresh tokens.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kefline/student-hub/internal/metrics"
	"github.com/kefline/student-hub/internal/security"
	"github.com/kefline/student-hub/internal/session/domain"
	userdomain "github.com/kefline/student-hub/internal/user/domain"
)

// Sentinel errors; handlers map them to 401 responses.
var (
	ErrTokenInvalid          = errors.New("invalid or expired token")
	ErrTokenRevokedOrUnknown = errors.New("invalid or expired refresh token")
	ErrUserNotFound          = errors.New("user not found")
)

// Store is the session persistence the manager needs.
type Store interface {
	Create(ctx context.Context, s *domain.Session) error
	FindActiveByToken(ctx context.Context, tokenHash string, at time.Time) (*domain.Session, error)
	Revoke(ctx context.Context, tokenHash string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
	ListActiveByUser(ctx context.Context, userID string, at time.Time) ([]*domain.Session, error)
}

// UserLookup resolves the owner of a refresh token during rotation.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// TokenPair is the result of issuance or rotation.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	SessionID        string
}

// Manager issues, verifies, revokes and rotates session tokens.
type Manager struct {
	store   Store
	users   UserLookup
	tokens  *security.TokenProvider
	metrics *metrics.Collector
	tracer  trace.Tracer
	logger  *zap.Logger
	now     func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock overrides the time used for store expiry checks. It should match the TokenProvider clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithMetrics records lifecycle counters on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(m *Manager) { m.metrics = c }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager returns a Manager over store, users and tokens.
func NewManager(store Store, users UserLookup, tokens *security.TokenProvider, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		users:  users,
		tokens: tokens,
		tracer: otel.Tracer("github.com/kefline/student-hub/internal/session/service"),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue mints an access token and a refresh token for user and records exactly one new session.
// Signing or store failures are returned as errors.
func (m *Manager) Issue(ctx context.Context, user *userdomain.User, client domain.ClientContext) (*TokenPair, error) {
	if user == nil || user.ID == "" {
		return nil, errors.New("issue: user is required")
	}
	access, accessExp, err := m.tokens.IssueAccess(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, _, refreshExp, err := m.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	now := m.now().UTC()
	sess := &domain.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		TokenHash: security.Fingerprint(refresh),
		ExpiresAt: refreshExp,
		Client:    client,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Create(ctx, sess); err != nil {
		return nil, err
	}
	m.metrics.TokenIssued()
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		SessionID:        sess.ID,
	}, nil
}

// VerifyAccess checks the access token's signature and expiry. It performs no I/O.
func (m *Manager) VerifyAccess(token string) (*security.AccessClaims, error) {
	claims, err := m.tokens.ValidateAccess(token)
	if err != nil {
		m.metrics.AccessVerifyFailed()
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// VerifyRefresh checks the refresh token's envelope, then requires an active session for it
// in the store. Returns ErrTokenInvalid when the envelope fails and ErrTokenRevokedOrUnknown
// when no active session matches. Store errors are returned as-is.
func (m *Manager) VerifyRefresh(ctx context.Context, token string) (*security.RefreshClaims, *domain.Session, error) {
	claims, err := m.tokens.ValidateRefresh(token)
	if err != nil {
		return nil, nil, ErrTokenInvalid
	}
	sess, err := m.store.FindActiveByToken(ctx, security.Fingerprint(token), m.now().UTC())
	if err != nil {
		return nil, nil, err
	}
	if sess == nil || sess.UserID != claims.Subject {
		return nil, nil, ErrTokenRevokedOrUnknown
	}
	return claims, sess, nil
}

// RevokeOne revokes the session holding token. Unknown or already revoked tokens are a no-op.
func (m *Manager) RevokeOne(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	ok, err := m.store.Revoke(ctx, security.Fingerprint(token))
	if err != nil {
		return err
	}
	if ok {
		m.metrics.Revoked("one", 1)
	}
	return nil
}

// RevokeOwned revokes token only when its session belongs to userID. Returns whether a session was revoked.
func (m *Manager) RevokeOwned(ctx context.Context, userID, token string) (bool, error) {
	if token == "" || userID == "" {
		return false, nil
	}
	hash := security.Fingerprint(token)
	sess, err := m.store.FindActiveByToken(ctx, hash, m.now().UTC())
	if err != nil {
		return false, err
	}
	if sess == nil || sess.UserID != userID {
		return false, nil
	}
	ok, err := m.store.Revoke(ctx, hash)
	if err != nil {
		return false, err
	}
	if ok {
		m.metrics.Revoked("one", 1)
	}
	return ok, nil
}

// RevokeAll revokes every session of userID and returns how many were active.
func (m *Manager) RevokeAll(ctx context.Context, userID string) (int64, error) {
	n, err := m.store.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	m.metrics.Revoked("all", n)
	return n, nil
}

// ListActive returns userID's active sessions.
func (m *Manager) ListActive(ctx context.Context, userID string) ([]*domain.Session, error) {
	return m.store.ListActiveByUser(ctx, userID, m.now().UTC())
}

// Rotate exchanges a refresh token for a new pair. The steps run in order: verify, load the
// owner, revoke the old session, issue the new one. The revoke is conditional, so when two
// requests race on the same token only the first one issues; the other gets ErrTokenRevokedOrUnknown.
// A failure after the revoke leaves the user with no session from this rotation.
func (m *Manager) Rotate(ctx context.Context, refreshToken string, client domain.ClientContext) (*TokenPair, *userdomain.User, error) {
	ctx, span := m.tracer.Start(ctx, "session.Rotate")
	defer span.End()

	pair, user, reason, err := m.rotate(ctx, refreshToken, client)
	if err != nil {
		if reason != "" {
			m.metrics.RotationRejected(reason)
			span.SetAttributes(attribute.String("rotation.reject_reason", reason))
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}
	span.SetAttributes(attribute.String("user.id", user.ID), attribute.String("session.id", pair.SessionID))
	m.metrics.Rotated()
	return pair, user, nil
}

func (m *Manager) rotate(ctx context.Context, refreshToken string, client domain.ClientContext) (*TokenPair, *userdomain.User, string, error) {
	claims, _, err := m.VerifyRefresh(ctx, refreshToken)
	switch {
	case errors.Is(err, ErrTokenInvalid):
		return nil, nil, metrics.ReasonInvalid, err
	case errors.Is(err, ErrTokenRevokedOrUnknown):
		return nil, nil, metrics.ReasonRevokedOrUnknown, err
	case err != nil:
		return nil, nil, "", err
	}

	user, err := m.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, nil, "", err
	}
	if user == nil || !user.IsActive {
		return nil, nil, metrics.ReasonUserNotFound, ErrUserNotFound
	}

	revoked, err := m.store.Revoke(ctx, security.Fingerprint(refreshToken))
	if err != nil {
		return nil, nil, "", err
	}
	if !revoked {
		m.logger.Warn("refresh token already rotated", zap.String("user_id", user.ID))
		return nil, nil, metrics.ReasonAlreadyRotated, ErrTokenRevokedOrUnknown
	}
	m.metrics.Revoked("one", 1)

	pair, err := m.Issue(ctx, user, client)
	if err != nil {
		m.logger.Error("rotation issue failed after revoke", zap.String("user_id", user.ID), zap.Error(err))
		return nil, nil, "", err
	}
	return pair, user, "", nil
}
