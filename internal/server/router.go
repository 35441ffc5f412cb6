package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	audithandler "github.com/kefline/student-hub/internal/audit/handler"
	"github.com/kefline/student-hub/internal/devreset"
	healthhandler "github.com/kefline/student-hub/internal/health/handler"
	identityhandler "github.com/kefline/student-hub/internal/identity/handler"
	"github.com/kefline/student-hub/internal/platform/ratelimit"
	"github.com/kefline/student-hub/internal/platform/rbac"
	"github.com/kefline/student-hub/internal/policy/engine"
	"github.com/kefline/student-hub/internal/server/interceptors"
	sessionhandler "github.com/kefline/student-hub/internal/session/handler"
	userhandler "github.com/kefline/student-hub/internal/user/handler"
)

// RouterDeps holds the handlers and middleware dependencies of the HTTP API.
type RouterDeps struct {
	Logger   *zap.Logger
	Verifier interceptors.AccessVerifier
	Policy   engine.Evaluator

	Identity *identityhandler.Handler
	Users    *userhandler.Handler
	Sessions *sessionhandler.Handler
	Health   *healthhandler.Checker
	// Audit serves GET /api/users/me/audit-logs. If nil, the route is not registered.
	Audit *audithandler.Handler

	// Metrics serves GET /metrics. If nil, the route is not registered.
	Metrics http.Handler
	// RateLimit throttles the credential endpoints. If nil, no limit applies.
	RateLimit *ratelimit.Limiter
	// DevResets exposes GET /dev/password-reset-token. Set only outside production.
	DevResets devreset.Store
}

// NewRouter assembles the gin engine with every route of the API.
func NewRouter(deps RouterDeps) (*gin.Engine, error) {
	if err := identityhandler.RegisterValidators(); err != nil {
		return nil, err
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(ClientIP())

	if deps.Health != nil {
		r.GET("/healthz", deps.Health.HTTP)
	}
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	limit := func(c *gin.Context) { c.Next() }
	if deps.RateLimit != nil {
		limit = deps.RateLimit.Middleware()
	}

	api := r.Group("/api/users")
	api.POST("/register", limit, deps.Identity.Register)
	api.POST("/login", limit, deps.Identity.Login)
	api.POST("/refresh-token", limit, deps.Identity.RefreshToken)
	api.POST("/forgot-password", limit, deps.Identity.ForgotPassword)
	api.POST("/reset-password", limit, deps.Identity.ResetPassword)

	authed := api.Group("", Authenticate(deps.Verifier))
	authed.POST("/logout", deps.Identity.Logout)
	authed.POST("/logout-all", deps.Identity.LogoutAll)
	authed.POST("/change-password", deps.Identity.ChangePassword)
	authed.GET("/me", deps.Users.Me)
	authed.GET("/me/sessions", deps.Sessions.ListMine)
	if deps.Audit != nil {
		authed.GET("/me/audit-logs", deps.Audit.ListMine)
	}

	authed.GET("", rbac.Require(deps.Policy, engine.PermUsersList), deps.Users.List)
	authed.GET("/:id", rbac.Require(deps.Policy, engine.PermUsersRead), deps.Users.Get)
	authed.POST("/:id/sessions/revoke", rbac.Require(deps.Policy, engine.PermSessionsRevokeAny), deps.Sessions.RevokeForUser)

	if deps.DevResets != nil {
		r.GET("/dev/password-reset-token", devreset.Handler(deps.DevResets))
	}
	return r, nil
}
