// Package handler reports readiness over HTTP (/healthz) and the gRPC health service.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const checkTimeout = 2 * time.Second

// Pinger checks database connectivity (e.g. *sqlx.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks that the authorization policy evaluates.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Checker aggregates readiness dependencies. Nil dependencies are skipped.
type Checker struct {
	pinger Pinger
	policy PolicyChecker
	logger *zap.Logger
}

// NewChecker returns a Checker. logger may be nil.
func NewChecker(pinger Pinger, policy PolicyChecker, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{pinger: pinger, policy: policy, logger: logger}
}

// Check returns the first failing dependency error, or nil when ready.
func (c *Checker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if c.pinger != nil {
		if err := c.pinger.PingContext(ctx); err != nil {
			return err
		}
	}
	if c.policy != nil {
		if err := c.policy.HealthCheck(ctx); err != nil {
			return err
		}
	}
	return nil
}

// HTTP handles GET /healthz: 200 {"status":"ok"} or 503 {"status":"unavailable"}.
func (c *Checker) HTTP(ctx *gin.Context) {
	if err := c.Check(ctx.Request.Context()); err != nil {
		c.logger.Warn("health check failed", zap.Error(err))
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Sync sets the overall serving status on hs from one Check.
func (c *Checker) Sync(ctx context.Context, hs *health.Server) {
	st := healthpb.HealthCheckResponse_SERVING
	if err := c.Check(ctx); err != nil {
		c.logger.Warn("health check failed", zap.Error(err))
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus("", st)
}

// Watch calls Sync every interval until ctx is done.
func (c *Checker) Watch(ctx context.Context, hs *health.Server, interval time.Duration) {
	c.Sync(ctx, hs)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Sync(ctx, hs)
		}
	}
}
