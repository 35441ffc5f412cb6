// seed inserts one demo account per role for local testing.
// Idempotent: an account whose email already exists is left untouched.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kefline/student-hub/internal/config"
	"github.com/kefline/student-hub/internal/db"
	"github.com/kefline/student-hub/internal/platform/logging"
	"github.com/kefline/student-hub/internal/security"
	"github.com/kefline/student-hub/internal/user/domain"
	userrepo "github.com/kefline/student-hub/internal/user/repository"
)

const devPassword = "password123"

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

	if cfg.IsProduction() {
		log.Fatal("refusing to seed demo accounts when APP_ENV=production")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env or export DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := userrepo.NewPostgresRepository(conn)
	hasher := security.NewHasher(cfg.BcryptCost)

	for _, role := range domain.Roles {
		email := string(role) + "@example.com"
		created, err := seedUser(ctx, users, hasher, email, role)
		if err != nil {
			log.Fatal("seed user", zap.String("email", email), zap.Error(err))
		}
		if created {
			log.Info("created demo user", zap.String("email", email), zap.String("role", string(role)))
		} else {
			log.Info("demo user exists, skipping", zap.String("email", email))
		}
	}
	log.Info("seed complete", zap.String("password", devPassword))
}

func seedUser(ctx context.Context, users userrepo.Repository, hasher *security.Hasher, email string, role domain.Role) (bool, error) {
	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	hash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()
	name := string(role)
	u := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Demo",
		LastName:     strings.ToUpper(name[:1]) + name[1:],
		Role:         role,
		IsActive:     true,
		IsVerified:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.Validate(); err != nil {
		return false, err
	}
	if err := users.Create(ctx, u); err != nil {
		return false, err
	}
	return true, nil
}
