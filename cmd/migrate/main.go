// migrate applies the embedded SQL migrations; run with go run ./cmd/migrate -direction=up|down.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/kefline/student-hub/internal/config"
	"github.com/kefline/student-hub/internal/db/migrate"
	"github.com/kefline/student-hub/internal/platform/logging"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

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

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env or export DATABASE_URL")
	}

	dir, err := migrate.ParseDirection(*direction)
	if err != nil {
		log.Fatal("invalid flag", zap.Error(err))
	}

	version, err := migrate.Run(cfg.DatabaseURL, dir)
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Info("database already at target version", zap.String("direction", string(dir)), zap.Uint("version", version))
	case err != nil:
		log.Fatal("migrate failed", zap.String("direction", string(dir)), zap.Error(err))
	default:
		log.Info("migrations applied", zap.String("direction", string(dir)), zap.Uint("version", version))
	}
}
