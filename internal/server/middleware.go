package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kefline/student-hub/internal/platform/response"
	"github.com/kefline/student-hub/internal/server/interceptors"
)

// RequestLogger returns a gin middleware that logs each request using zap.
// Query strings are not logged.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// ClientIP stores the request's client IP in the request context for audit records.
func ClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(interceptors.WithClientIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}

// Authenticate requires a valid Bearer access token and stores the caller identity in the
// request context. Verification is stateless: no store lookup.
func Authenticate(verifier interceptors.AccessVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := interceptors.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			response.Unauthorized(c, "")
			return
		}
		claims, err := verifier.VerifyAccess(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}
		ctx := interceptors.WithIdentity(c.Request.Context(), claims.Subject, claims.Email, claims.Role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
