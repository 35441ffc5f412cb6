package repository

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned when the credential update matches no user.
var ErrUserNotFound = errors.New("user not found")

// CredentialStore replaces a user's credential.
type CredentialStore interface {
	// ResetCredential stores passwordHash for userID and revokes every session of the user
	// in the same transaction. Returns the number of sessions revoked.
	ResetCredential(ctx context.Context, userID, passwordHash string) (int64, error)
}
