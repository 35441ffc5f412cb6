package repository

import (
	"context"
	"errors"

	"github.com/kefline/student-hub/internal/user/domain"
)

// ErrEmailTaken is returned by Create when another user already holds the email.
var ErrEmailTaken = errors.New("email already registered")

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	UpdateLastLogin(ctx context.Context, id string) error
	// List returns users ordered by creation time, newest first.
	List(ctx context.Context, limit, offset int) ([]*domain.User, error)
}
