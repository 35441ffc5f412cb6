package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kefline/student-hub/internal/session/domain"
)

const sessionColumns = `id, user_id, token, expires_at, is_revoked, issued_ip, browser, os, created_at, updated_at`

type sessionRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Token     string    `db:"token"`
	ExpiresAt time.Time `db:"expires_at"`
	IsRevoked bool      `db:"is_revoked"`
	IssuedIP  string    `db:"issued_ip"`
	Browser   string    `db:"browser"`
	OS        string    `db:"os"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type PostgresRepository struct {
	db sqlx.ExtContext
}

// NewPostgresRepository returns a session repository over db. A *sqlx.Tx may be passed to
// run the operations inside a transaction.
func NewPostgresRepository(db sqlx.ExtContext) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `
		INSERT INTO refresh_tokens (`+sessionColumns+`)
		VALUES (:id, :user_id, :token, :expires_at, :is_revoked, :issued_ip, :browser, :os, :created_at, :updated_at)`,
		domainToRow(s))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindActiveByToken returns the active session for tokenHash at the given time, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) FindActiveByToken(ctx context.Context, tokenHash string, at time.Time) (*domain.Session, error) {
	var row sessionRow
	err := sqlx.GetContext(ctx, r.db, &row, `
		SELECT `+sessionColumns+` FROM refresh_tokens
		WHERE token = $1 AND is_revoked = FALSE AND expires_at > $2`, tokenHash, at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return rowToDomain(&row), nil
}

// Revoke flips is_revoked for tokenHash when it is still false. The affected-row count is the
// compare-and-set result used to reject concurrent rotations of the same token.
func (r *PostgresRepository) Revoke(ctx context.Context, tokenHash string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET is_revoked = TRUE, updated_at = now()
		WHERE token = $1 AND is_revoked = FALSE`, tokenHash)
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	return n > 0, nil
}

// RevokeAllForUser revokes every session owned by userID.
func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET is_revoked = TRUE, updated_at = now()
		WHERE user_id = $1 AND is_revoked = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke all sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("revoke all sessions: %w", err)
	}
	return n, nil
}

// ListActiveByUser returns the user's active sessions ordered by created_at descending.
func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string, at time.Time) ([]*domain.Session, error) {
	var rows []sessionRow
	err := sqlx.SelectContext(ctx, r.db, &rows, `
		SELECT `+sessionColumns+` FROM refresh_tokens
		WHERE user_id = $1 AND is_revoked = FALSE AND expires_at > $2
		ORDER BY created_at DESC`, userID, at)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]*domain.Session, len(rows))
	for i := range rows {
		out[i] = rowToDomain(&rows[i])
	}
	return out, nil
}

func rowToDomain(r *sessionRow) *domain.Session {
	return &domain.Session{
		ID:        r.ID,
		UserID:    r.UserID,
		TokenHash: r.Token,
		ExpiresAt: r.ExpiresAt,
		Revoked:   r.IsRevoked,
		Client: domain.ClientContext{
			IP:        r.IssuedIP,
			UserAgent: r.Browser,
			Platform:  r.OS,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func domainToRow(s *domain.Session) *sessionRow {
	return &sessionRow{
		ID:        s.ID,
		UserID:    s.UserID,
		Token:     s.TokenHash,
		ExpiresAt: s.ExpiresAt,
		IsRevoked: s.Revoked,
		IssuedIP:  s.Client.IP,
		Browser:   s.Client.UserAgent,
		OS:        s.Client.Platform,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
