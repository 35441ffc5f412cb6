package engine

import "context"

// Permissions checked by the HTTP layer.
const (
	PermUsersList         = "users:list"
	PermUsersRead         = "users:read"
	PermSessionsRevokeAny = "sessions:revoke_any"
)

// Evaluator decides whether a role holds a permission.
type Evaluator interface {
	// Allowed reports whether role may perform permission. Unknown roles and permissions are denied.
	Allowed(ctx context.Context, role, permission string) (bool, error)
}
