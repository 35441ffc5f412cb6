package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kefline/student-hub/internal/audit/domain"
)

type auditRow struct {
	ID        string         `db:"id"`
	UserID    sql.NullString `db:"user_id"`
	Action    string         `db:"action"`
	Resource  string         `db:"resource"`
	IP        string         `db:"ip"`
	Metadata  sql.NullString `db:"metadata"`
	CreatedAt time.Time      `db:"created_at"`
}

type PostgresRepository struct {
	db sqlx.ExtContext
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db sqlx.ExtContext) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `
		INSERT INTO audit_logs (id, user_id, action, resource, ip, metadata, created_at)
		VALUES (:id, :user_id, :action, :resource, :ip, :metadata, :created_at)`, auditRow{
		ID:        a.ID,
		UserID:    sql.NullString{String: a.UserID, Valid: a.UserID != ""},
		Action:    a.Action,
		Resource:  a.Resource,
		IP:        a.IP,
		Metadata:  sql.NullString{String: a.Metadata, Valid: a.Metadata != ""},
		CreatedAt: a.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// ListByUser returns the user's audit logs, newest first, paginated by limit and offset.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.AuditLog, error) {
	var rows []auditRow
	err := sqlx.SelectContext(ctx, r.db, &rows, `
		SELECT id, user_id, action, resource, ip, metadata, created_at FROM audit_logs
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	out := make([]*domain.AuditLog, len(rows))
	for i, row := range rows {
		out[i] = &domain.AuditLog{
			ID:        row.ID,
			UserID:    row.UserID.String,
			Action:    row.Action,
			Resource:  row.Resource,
			IP:        row.IP,
			Metadata:  row.Metadata.String,
			CreatedAt: row.CreatedAt,
		}
	}
	return out, nil
}
