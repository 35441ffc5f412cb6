package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/kefline/student-hub/internal/audit"
	audithandler "github.com/kefline/student-hub/internal/audit/handler"
	auditrepo "github.com/kefline/student-hub/internal/audit/repository"
	"github.com/kefline/student-hub/internal/config"
	"github.com/kefline/student-hub/internal/db"
	"github.com/kefline/student-hub/internal/devreset"
	healthhandler "github.com/kefline/student-hub/internal/health/handler"
	identityhandler "github.com/kefline/student-hub/internal/identity/handler"
	identityrepo "github.com/kefline/student-hub/internal/identity/repository"
	identityservice "github.com/kefline/student-hub/internal/identity/service"
	"github.com/kefline/student-hub/internal/metrics"
	"github.com/kefline/student-hub/internal/platform/logging"
	"github.com/kefline/student-hub/internal/platform/ratelimit"
	"github.com/kefline/student-hub/internal/policy/engine"
	"github.com/kefline/student-hub/internal/security"
	"github.com/kefline/student-hub/internal/server"
	"github.com/kefline/student-hub/internal/server/interceptors"
	sessionhandler "github.com/kefline/student-hub/internal/session/handler"
	sessionrepo "github.com/kefline/student-hub/internal/session/repository"
	sessionservice "github.com/kefline/student-hub/internal/session/service"
	"github.com/kefline/student-hub/internal/telemetry"
	telemetryotel "github.com/kefline/student-hub/internal/telemetry/otel"
	"github.com/kefline/student-hub/internal/telemetry/producer"
	userhandler "github.com/kefline/student-hub/internal/user/handler"
	userrepo "github.com/kefline/student-hub/internal/user/repository"
)

const (
	serviceName        = "student-hub"
	healthPollInterval = 10 * time.Second
	loginRateWindow    = time.Minute
	httpShutdownGrace  = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Config{
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: serviceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTelInsecure,
	})
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()

	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer database.Close()

	accessSecret, err := security.LoadSecret(cfg.AccessTokenSecret)
	if err != nil {
		return fmt.Errorf("access token secret: %w", err)
	}
	refreshSecret, err := security.LoadSecret(cfg.RefreshTokenSecret)
	if err != nil {
		return fmt.Errorf("refresh token secret: %w", err)
	}
	if !cfg.IsProduction() && cfg.AccessTokenSecret == config.DevAccessTokenSecret {
		log.Warn("using development token secrets; set ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET")
	}
	tokens, err := security.NewTokenProvider(security.TokenConfig{
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
		Issuer:        cfg.JWTIssuer,
		Audience:      cfg.JWTAudience,
		AccessTTL:     cfg.AccessTTL(),
		RefreshTTL:    cfg.RefreshTTL(),
		ResetTTL:      cfg.ResetTTL(),
		Leeway:        cfg.Leeway(),
	})
	if err != nil {
		return fmt.Errorf("token provider: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	users := userrepo.NewPostgresRepository(database)
	sessions := sessionrepo.NewPostgresRepository(database)
	credentials := identityrepo.NewPostgresRepository(database)

	manager := sessionservice.NewManager(sessions, users, tokens,
		sessionservice.WithMetrics(collector),
		sessionservice.WithLogger(log.Named("session")),
	)

	kafkaProducer, err := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.AuditKafkaTopic)
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	var sinks []telemetry.EventEmitter
	if kafkaProducer != nil {
		sinks = append(sinks, kafkaProducer)
		log.Info("audit events published to kafka", zap.String("topic", cfg.AuditKafkaTopic))
	}
	if cfg.OTelEndpoint != "" {
		sinks = append(sinks, telemetryotel.NewEventEmitter(providers.LoggerProvider))
	}
	audits := auditrepo.NewPostgresRepository(database)
	auditLogger := audit.NewLogger(audits, interceptors.ClientIP, log.Named("audit"), sinks...)

	authOpts := []identityservice.Option{
		identityservice.WithAuditLogger(auditLogger),
		identityservice.WithMetrics(collector),
		identityservice.WithLogger(log.Named("identity")),
	}
	var devResets devreset.Store
	if cfg.ResetTokenReturnToClient && !cfg.IsProduction() {
		devResets = devreset.NewMemoryStore()
		authOpts = append(authOpts, identityservice.WithDevResetStore(devResets))
		log.Warn("password reset tokens are returned to clients (development mode)")
	}
	auth, err := identityservice.NewAuthService(users, credentials, manager, security.NewHasher(cfg.BcryptCost), tokens, authOpts...)
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}

	policy, err := engine.NewOPAEvaluator(ctx, "")
	if err != nil {
		return fmt.Errorf("policy engine: %w", err)
	}

	var limiter *ratelimit.Limiter
	if cfg.RedisURL != "" {
		rdb, err := ratelimit.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		limiter = ratelimit.New(ratelimit.NewRedisCounter(rdb), "auth", cfg.LoginRateLimit, loginRateWindow, log.Named("ratelimit"))
	} else {
		log.Info("REDIS_URL not set; credential rate limiting disabled")
	}

	checker := healthhandler.NewChecker(database, policy, log.Named("health"))

	router, err := server.NewRouter(server.RouterDeps{
		Logger:    log,
		Verifier:  manager,
		Policy:    policy,
		Identity:  identityhandler.NewHandler(auth, log.Named("http")),
		Users:     userhandler.NewHandler(users, log.Named("http")),
		Sessions:  sessionhandler.NewHandler(manager, auth, log.Named("http")),
		Health:    checker,
		Audit:     audithandler.NewHandler(audits, log.Named("http")),
		Metrics:   collector.Handler(),
		RateLimit: limiter,
		DevResets: devResets,
	})
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}
	grpcSrv, healthSrv := server.NewGRPCServer(manager)
	go checker.Watch(ctx, healthSrv, healthPollInterval)

	errCh := make(chan error, 2)
	go func() {
		log.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case serveErr = <-errCh:
		log.Error("server failed", zap.Error(serveErr))
	}

	healthSrv.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownGrace)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	grpcSrv.GracefulStop()

	// Let in-flight async audit emits finish before closing their sinks.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.Warn("kafka producer close", zap.Error(err))
		}
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn("otel shutdown", zap.Error(err))
	}
	log.Info("servers stopped")
	return serveErr
}
