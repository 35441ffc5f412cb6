// Package migrate applies the embedded SQL schema (users, refresh_tokens, audit_logs) with golang-migrate.
package migrate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/kefline/student-hub/internal/db"
)

// Direction selects which way Run moves the schema.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ErrNoChange is returned by Run when the schema is already at the target version.
var ErrNoChange = migrate.ErrNoChange

// ParseDirection accepts "up" or "down", case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case Up, Down:
		return d, nil
	default:
		return "", fmt.Errorf("direction must be up or down, got %q", s)
	}
}

// Run migrates the database at dsn all the way in dir and returns the resulting schema
// version (0 when every migration has been rolled back). ErrNoChange is returned, with
// the current version, when there was nothing to apply.
func Run(dsn string, dir Direction) (uint, error) {
	if dsn == "" {
		return 0, errors.New("DATABASE_URL is not set")
	}
	if dir != Up && dir != Down {
		return 0, fmt.Errorf("direction must be up or down, got %q", dir)
	}

	src, err := iofs.New(db.MigrationFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("migrate source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return 0, fmt.Errorf("migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if dir == Up {
		err = m.Up()
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate %s: %w", dir, err)
	}

	version, dirty, verr := m.Version()
	switch {
	case errors.Is(verr, migrate.ErrNilVersion):
		version = 0
	case verr != nil:
		return 0, fmt.Errorf("migrate version: %w", verr)
	case dirty:
		return version, fmt.Errorf("migrate: schema version %d is dirty", version)
	}
	return version, err
}
