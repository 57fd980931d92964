package database

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations applies any pending schema migrations. Safe to call on every
// start; a fully-migrated database is a no-op.
func RunMigrations(databaseURL string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("error loading migrations: %w", err)
	}

	// The migrate pgx/v5 driver registers under its own URL scheme.
	url := databaseURL
	if rest, ok := strings.CutPrefix(url, "postgresql://"); ok {
		url = "pgx5://" + rest
	} else if rest, ok := strings.CutPrefix(url, "postgres://"); ok {
		url = "pgx5://" + rest
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return fmt.Errorf("error creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error applying migrations: %w", err)
	}
	return nil
}
