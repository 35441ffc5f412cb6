package devreset

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kefline/student-hub/internal/platform/response"
)

const devNote = "DEV MODE ONLY"

// Handler serves GET /dev/password-reset-token?email=. Only registered when dev reset mode
// is enabled and not in production.
func Handler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := strings.TrimSpace(c.Query("email"))
		if email == "" {
			response.BadRequest(c, "email is required")
			return
		}
		token, ok := store.Get(c.Request.Context(), email)
		if !ok {
			response.NotFound(c, "reset token not found or expired")
			return
		}
		response.OK(c, gin.H{"token": token, "note": devNote})
	}
}
