package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/kefline/student-hub/internal/user/domain"
)

const userColumns = `id, email, password_hash, first_name, last_name, role, is_active, is_verified,
	last_login_at, created_at, updated_at`

type userRow struct {
	ID           string       `db:"id"`
	Email        string       `db:"email"`
	PasswordHash string       `db:"password_hash"`
	FirstName    string       `db:"first_name"`
	LastName     string       `db:"last_name"`
	Role         string       `db:"role"`
	IsActive     bool         `db:"is_active"`
	IsVerified   bool         `db:"is_verified"`
	LastLoginAt  sql.NullTime `db:"last_login_at"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

type PostgresRepository struct {
	db sqlx.ExtContext
}

// NewPostgresRepository returns a user repository that uses the given db (or transaction) for persistence.
func NewPostgresRepository(db sqlx.ExtContext) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail returns the user with the given email (case-insensitive), or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	var row userRow
	if err := sqlx.GetContext(ctx, r.db, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return rowToDomain(&row), nil
}

// Create persists the user. The user must have ID set; it is not assigned by this method.
// Returns ErrEmailTaken on a unique violation of the email index.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, role, is_active, is_verified,
			created_at, updated_at)
		VALUES (:id, :email, :password_hash, :first_name, :last_name, :role, :is_active, :is_verified,
			:created_at, :updated_at)`, domainToRow(u))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateLastLogin stamps last_login_at with the current time.
func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = now(), updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdatePasswordHash replaces the stored credential. Returns false when no user has the id.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return false, fmt.Errorf("update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update password: %w", err)
	}
	return n > 0, nil
}

// List returns users ordered by created_at descending.
func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	var rows []userRow
	err := sqlx.SelectContext(ctx, r.db, &rows,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]*domain.User, 0, len(rows))
	for i := range rows {
		out = append(out, rowToDomain(&rows[i]))
	}
	return out, nil
}

func rowToDomain(r *userRow) *domain.User {
	u := &domain.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Role:         domain.Role(r.Role),
		IsActive:     r.IsActive,
		IsVerified:   r.IsVerified,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.LastLoginAt.Valid {
		t := r.LastLoginAt.Time
		u.LastLoginAt = &t
	}
	return u
}

func domainToRow(u *domain.User) *userRow {
	return &userRow{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         string(u.Role),
		IsActive:     u.IsActive,
		IsVerified:   u.IsVerified,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
