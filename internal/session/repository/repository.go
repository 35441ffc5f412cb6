package repository

import (
	"context"
	"time"

	"github.com/kefline/student-hub/internal/session/domain"
)

// Repository defines persistence for refresh-token sessions. Sessions are only ever
// inserted or flipped to revoked; nothing un-revokes or deletes them.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	// FindActiveByToken returns the session whose token hash matches and that is neither
	// revoked nor expired at the given time, or nil if none.
	FindActiveByToken(ctx context.Context, tokenHash string, at time.Time) (*domain.Session, error)
	// Revoke marks the session with tokenHash revoked only if it is still active.
	// Returns false when no row changed (unknown token or already revoked).
	Revoke(ctx context.Context, tokenHash string) (bool, error)
	// RevokeAllForUser marks every session of userID revoked and returns the number of rows changed.
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
	// ListActiveByUser returns the user's non-revoked, unexpired sessions, newest first.
	ListActiveByUser(ctx context.Context, userID string, at time.Time) ([]*domain.Session, error)
}
