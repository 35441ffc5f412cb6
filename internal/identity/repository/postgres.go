package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kefline/student-hub/internal/db"
	sessionrepo "github.com/kefline/student-hub/internal/session/repository"
	userrepo "github.com/kefline/student-hub/internal/user/repository"
)

// PostgresRepository implements CredentialStore over the users and refresh_tokens tables.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns a credential store that uses the given db for persistence.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ResetCredential updates the password hash and revokes all sessions atomically.
// A stale refresh token cannot outlive the credential it was issued under.
func (r *PostgresRepository) ResetCredential(ctx context.Context, userID, passwordHash string) (int64, error) {
	var revoked int64
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		ok, err := userrepo.NewPostgresRepository(tx).UpdatePasswordHash(ctx, userID, passwordHash)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUserNotFound
		}
		revoked, err = sessionrepo.NewPostgresRepository(tx).RevokeAllForUser(ctx, userID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("reset credential: %w", err)
	}
	return revoked, nil
}
