// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Development signing secrets used when none are configured outside production.
const (
	DevAccessTokenSecret  = "dev-access-secret-change-me"
	DevRefreshTokenSecret = "dev-refresh-secret-change-me"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC health/auth listener uses. Empty disables it.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// AccessTokenSecret signs access and password-reset tokens. Inline value or "file:<path>".
	AccessTokenSecret string `mapstructure:"ACCESS_TOKEN_SECRET"`
	// RefreshTokenSecret signs refresh tokens. Must differ from AccessTokenSecret.
	RefreshTokenSecret string `mapstructure:"REFRESH_TOKEN_SECRET"`
	JWTIssuer          string `mapstructure:"JWT_ISSUER"`
	JWTAudience        string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// JWTLeeway is the clock-skew tolerance for exp/iat checks (default "0s").
	JWTLeeway string `mapstructure:"JWT_LEEWAY"`
	// PasswordResetTTL is the password-reset token lifetime (default "1h").
	PasswordResetTTL string `mapstructure:"PASSWORD_RESET_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 10.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// RedisURL enables rate limiting on the public auth routes when set.
	RedisURL string `mapstructure:"REDIS_URL"`
	// LoginRateLimit is the number of login/refresh/forgot-password attempts allowed per IP per minute.
	LoginRateLimit int `mapstructure:"LOGIN_RATE_LIMIT"`

	// OTelEndpoint is the OTLP gRPC collector endpoint. Empty disables export.
	OTelEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses. Empty disables the audit Kafka sink.
	KafkaBrokers    string `mapstructure:"KAFKA_BROKERS"`
	AuditKafkaTopic string `mapstructure:"AUDIT_KAFKA_TOPIC"`

	// Env is the application environment (e.g. "development", "production").
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// ResetTokenReturnToClient when true keeps issued password-reset tokens in memory for GET /dev/password-reset-token.
	// Must not be true when Env is production.
	ResetTokenReturnToClient bool `mapstructure:"RESET_TOKEN_RETURN_TO_CLIENT"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("ACCESS_TOKEN_SECRET", "")
	v.SetDefault("REFRESH_TOKEN_SECRET", "")
	v.SetDefault("JWT_ISSUER", "student-hub")
	v.SetDefault("JWT_AUDIENCE", "student-hub-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("JWT_LEEWAY", "0s")
	v.SetDefault("PASSWORD_RESET_TTL", "1h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("LOGIN_RATE_LIMIT", 10)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUDIT_KAFKA_TOPIC", "student-hub-audit")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RESET_TOKEN_RETURN_TO_CLIENT", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.ResetTokenReturnToClient && cfg.IsProduction() {
		return nil, errors.New("config: RESET_TOKEN_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}

	if cfg.IsProduction() {
		if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
			return nil, errors.New("config: ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must be set in production")
		}
		if cfg.AccessTokenSecret == DevAccessTokenSecret || cfg.RefreshTokenSecret == DevRefreshTokenSecret {
			return nil, errors.New("config: development token secrets must not be used in production")
		}
	} else {
		if cfg.AccessTokenSecret == "" {
			cfg.AccessTokenSecret = DevAccessTokenSecret
		}
		if cfg.RefreshTokenSecret == "" {
			cfg.RefreshTokenSecret = DevRefreshTokenSecret
		}
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return nil, errors.New("config: ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 10
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.LoginRateLimit < 0 {
		return nil, errors.New("config: LOGIN_RATE_LIMIT must not be negative")
	}
	if _, err := time.ParseDuration(cfg.JWTLeeway); cfg.JWTLeeway != "" && err != nil {
		return nil, errors.New("config: JWT_LEEWAY must be a duration (e.g. 5s)")
	}

	return &cfg, nil
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return parseDurationOr(c.JWTAccessTTL, 15*time.Minute)
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return parseDurationOr(c.JWTRefreshTTL, 168*time.Hour)
}

// ResetTTL parses PasswordResetTTL as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) ResetTTL() time.Duration {
	return parseDurationOr(c.PasswordResetTTL, time.Hour)
}

// Leeway parses JWTLeeway as a time.Duration. Returns 0 if unset, invalid or negative.
func (c *Config) Leeway() time.Duration {
	d, err := time.ParseDuration(c.JWTLeeway)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list disables the audit Kafka sink.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseDurationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
