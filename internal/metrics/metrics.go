// Package metrics exposes Prometheus counters for the token lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Rotation reject reasons.
const (
	ReasonInvalid          = "invalid"
	ReasonRevokedOrUnknown = "revoked_or_unknown"
	ReasonUserNotFound     = "user_not_found"
	ReasonAlreadyRotated   = "already_rotated"
)

// Collector holds the auth counters. A nil *Collector is valid and records nothing.
type Collector struct {
	tokensIssued       prometheus.Counter
	rotations          prometheus.Counter
	rotationRejects    *prometheus.CounterVec
	revocations        *prometheus.CounterVec
	accessVerifyFailed prometheus.Counter
	loginFailures      prometheus.Counter
	gatherer           prometheus.Gatherer
}

// New registers the auth counters on reg. A fresh registry is used when reg is nil.
func New(reg *prometheus.Registry) (*Collector, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c := &Collector{
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "studenthub", Subsystem: "auth", Name: "token_pairs_issued_total",
			Help: "Access/refresh token pairs issued.",
		}),
		rotations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "studenthub", Subsystem: "auth", Name: "refresh_rotations_total",
			Help: "Successful refresh-token rotations.",
		}),
		rotationRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studenthub", Subsystem: "auth", Name: "refresh_rejections_total",
			Help: "Rejected refresh-token rotations by reason.",
		}, []string{"reason"}),
		revocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studenthub", Subsystem: "auth", Name: "session_revocations_total",
			Help: "Sessions revoked, by scope (one or all).",
		}, []string{"scope"}),
		accessVerifyFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "studenthub", Subsystem: "auth", Name: "access_verification_failures_total",
			Help: "Access tokens rejected by the verifier.",
		}),
		loginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "studenthub", Subsystem: "auth", Name: "login_failures_total",
			Help: "Failed login attempts.",
		}),
		gatherer: reg,
	}
	for _, col := range []prometheus.Collector{
		c.tokensIssued, c.rotations, c.rotationRejects, c.revocations, c.accessVerifyFailed, c.loginFailures,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) TokenIssued() {
	if c != nil {
		c.tokensIssued.Inc()
	}
}

func (c *Collector) Rotated() {
	if c != nil {
		c.rotations.Inc()
	}
}

func (c *Collector) RotationRejected(reason string) {
	if c != nil {
		c.rotationRejects.WithLabelValues(reason).Inc()
	}
}

// Revoked records n revocations for scope "one" or "all".
func (c *Collector) Revoked(scope string, n int64) {
	if c != nil && n > 0 {
		c.revocations.WithLabelValues(scope).Add(float64(n))
	}
}

func (c *Collector) AccessVerifyFailed() {
	if c != nil {
		c.accessVerifyFailed.Inc()
	}
}

func (c *Collector) LoginFailed() {
	if c != nil {
		c.loginFailures.Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
