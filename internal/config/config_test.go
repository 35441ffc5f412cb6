package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":9090")
	}
	if cfg.JWTIssuer != "student-hub" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "student-hub")
	}
	if cfg.JWTAudience != "student-hub-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "student-hub-api")
	}
	if cfg.AccessTTL() != 15*time.Minute {
		t.Errorf("AccessTTL = %v, want 15m", cfg.AccessTTL())
	}
	if cfg.RefreshTTL() != 168*time.Hour {
		t.Errorf("RefreshTTL = %v, want 168h", cfg.RefreshTTL())
	}
	if cfg.ResetTTL() != time.Hour {
		t.Errorf("ResetTTL = %v, want 1h", cfg.ResetTTL())
	}
	if cfg.Leeway() != 0 {
		t.Errorf("Leeway = %v, want 0", cfg.Leeway())
	}
	if cfg.BcryptCost != 10 {
		t.Errorf("BcryptCost = %d, want 10", cfg.BcryptCost)
	}
	if cfg.LoginRateLimit != 10 {
		t.Errorf("LoginRateLimit = %d, want 10", cfg.LoginRateLimit)
	}
	if cfg.AuditKafkaTopic != "student-hub-audit" {
		t.Errorf("AuditKafkaTopic = %q, want default", cfg.AuditKafkaTopic)
	}
	if cfg.AccessTokenSecret != DevAccessTokenSecret || cfg.RefreshTokenSecret != DevRefreshTokenSecret {
		t.Error("dev secrets should be applied outside production")
	}
	if cfg.ResetTokenReturnToClient {
		t.Error("ResetTokenReturnToClient should default to false")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9999")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "12")
	os.Setenv("JWT_LEEWAY", "5s")
	os.Setenv("ACCESS_TOKEN_SECRET", "a-secret")
	os.Setenv("REFRESH_TOKEN_SECRET", "r-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9999")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.Leeway() != 5*time.Second {
		t.Errorf("Leeway = %v, want 5s", cfg.Leeway())
	}
	if cfg.AccessTokenSecret != "a-secret" || cfg.RefreshTokenSecret != "r-secret" {
		t.Errorf("secrets = %q/%q", cfg.AccessTokenSecret, cfg.RefreshTokenSecret)
	}
}

func TestLoad_Validation(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{"bcrypt cost too low", map[string]string{"BCRYPT_COST": "3"}},
		{"bcrypt cost too high", map[string]string{"BCRYPT_COST": "32"}},
		{"equal secrets", map[string]string{"ACCESS_TOKEN_SECRET": "same", "REFRESH_TOKEN_SECRET": "same"}},
		{"negative rate limit", map[string]string{"LOGIN_RATE_LIMIT": "-1"}},
		{"bad leeway", map[string]string{"JWT_LEEWAY": "soon"}},
		{"production without secrets", map[string]string{"APP_ENV": "production"}},
		{"production with dev secrets", map[string]string{
			"APP_ENV":              "production",
			"ACCESS_TOKEN_SECRET":  DevAccessTokenSecret,
			"REFRESH_TOKEN_SECRET": DevRefreshTokenSecret,
		}},
		{"reset token return in production", map[string]string{
			"APP_ENV":                      "production",
			"ACCESS_TOKEN_SECRET":          "a",
			"REFRESH_TOKEN_SECRET":         "b",
			"RESET_TOKEN_RETURN_TO_CLIENT": "true",
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tc.env {
				os.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Load: expected error")
			}
		})
	}
}

func TestLoad_ProductionWithSecrets(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_ENV", "production")
	os.Setenv("ACCESS_TOKEN_SECRET", "file:/run/secrets/access")
	os.Setenv("REFRESH_TOKEN_SECRET", "file:/run/secrets/refresh")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction = false, want true")
	}
}

func TestConfig_DurationFallbacks(t *testing.T) {
	c := &Config{JWTAccessTTL: "bogus", JWTRefreshTTL: "-1h", PasswordResetTTL: "", JWTLeeway: "-3s"}
	if c.AccessTTL() != 15*time.Minute {
		t.Errorf("AccessTTL = %v, want 15m", c.AccessTTL())
	}
	if c.RefreshTTL() != 168*time.Hour {
		t.Errorf("RefreshTTL = %v, want 168h", c.RefreshTTL())
	}
	if c.ResetTTL() != time.Hour {
		t.Errorf("ResetTTL = %v, want 1h", c.ResetTTL())
	}
	if c.Leeway() != 0 {
		t.Errorf("Leeway = %v, want 0", c.Leeway())
	}
}

func TestKafkaBrokersList(t *testing.T) {
	testCases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"localhost:9092", 1},
		{"a:9092, b:9092 ,,", 2},
	}
	for _, tc := range testCases {
		c := &Config{KafkaBrokers: tc.in}
		if got := len(c.KafkaBrokersList()); got != tc.want {
			t.Errorf("KafkaBrokersList(%q) len = %d, want %d", tc.in, got, tc.want)
		}
	}
	var nilCfg *Config
	if nilCfg.KafkaBrokersList() != nil {
		t.Error("nil config should return nil brokers")
	}
}
