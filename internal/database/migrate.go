package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies every pending up migration.
func Migrate(connStr string) error {
	return withMigrator(connStr, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				slog.Info("no new migrations found")
				return nil
			}

			return migrationError(err)
		}

		version, _, _ := m.Version()
		slog.Info("migrations applied", "version", version)

		return nil
	})
}

// Rollback reverts the last steps migrations.
func Rollback(connStr string, steps int) error {
	if steps < 1 {
		return fmt.Errorf("rollback needs at least one step, got %d", steps)
	}

	return withMigrator(connStr, func(m *migrate.Migrate) error {
		if err := m.Steps(-steps); err != nil {
			return migrationError(err)
		}

		version, _, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			slog.Info("all migrations reverted")
			return nil
		}

		slog.Info("migrations reverted", "version", version)

		return nil
	})
}

// Version reports the applied schema version and whether it is dirty.
func Version(connStr string) (uint, bool, error) {
	var (
		version uint
		dirty   bool
	)

	err := withMigrator(connStr, func(m *migrate.Migrate) error {
		var err error

		version, dirty, err = m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}

		return err
	})

	return version, dirty, err
}

func migrationError(err error) error {
	var dirtyErr migrate.ErrDirty
	if errors.As(err, &dirtyErr) {
		return fmt.Errorf("migration failed: dirty database version %d", dirtyErr.Version)
	}

	return fmt.Errorf("migration failed: %w", err)
}

// withMigrator opens its own connection because closing the migrator closes
// the database handle it was given.
func withMigrator(connStr string, fn func(m *migrate.Migrate) error) error {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	m, err := newMigrator(db)
	if err != nil {
		db.Close()
		return err
	}

	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			slog.Warn("closing migrator", "source_error", srcErr, "database_error", dbErr)
		}
	}()

	return fn(m)
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{SchemaName: "public"})
	if err != nil {
		return nil, fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}

	return m, nil
}
