// Package rbac enforces role permissions on authenticated requests.
package rbac

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/kefline/student-hub/internal/platform/response"
	"github.com/kefline/student-hub/internal/policy/engine"
	"github.com/kefline/student-hub/internal/server/interceptors"
)

var (
	// ErrUnauthenticated means the context carries no identity.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden means the caller's role lacks the permission.
	ErrForbidden = errors.New("insufficient permissions")
)

// RequirePermission checks that the caller in ctx has permission.
// Evaluator errors deny access.
func RequirePermission(ctx context.Context, ev engine.Evaluator, permission string) error {
	userID, okUser := interceptors.GetUserID(ctx)
	role, okRole := interceptors.GetRole(ctx)
	if !okUser || userID == "" || !okRole {
		return ErrUnauthenticated
	}
	allowed, err := ev.Allowed(ctx, role, permission)
	if err != nil || !allowed {
		return ErrForbidden
	}
	return nil
}

// Require is the gin form of RequirePermission. It must run after the auth middleware.
func Require(ev engine.Evaluator, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch err := RequirePermission(c.Request.Context(), ev, permission); {
		case errors.Is(err, ErrUnauthenticated):
			response.Unauthorized(c, "")
		case err != nil:
			response.Forbidden(c)
		default:
			c.Next()
		}
	}
}
