package migrations

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"ms-booking/internal/logger"
)

//go:embed sql/*.sql
var schemaFS embed.FS

// Files returns the embedded migration files.
func Files() fs.FS {
	sub, err := fs.Sub(schemaFS, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

// Runner applies the embedded schema migrations over its own connection;
// Close releases that connection, not the application pool.
type Runner struct {
	dsn      string
	logger   *logger.Logger
	migrator *migrate.Migrate
}

func NewRunner(dsn string, l *logger.Logger) *Runner {
	return &Runner{dsn: dsn, logger: l}
}

func (r *Runner) Initialize() error {
	source, err := iofs.New(schemaFS, "sql")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	migrator, err := migrate.NewWithSourceInstance("iofs", source, r.dsn)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	r.migrator = migrator
	return nil
}

func (r *Runner) ensure() error {
	if r.migrator != nil {
		return nil
	}
	return r.Initialize()
}

// Up runs all pending migrations. A dirty version is forced first.
func (r *Runner) Up() error {
	if err := r.ensure(); err != nil {
		return err
	}

	version, dirty, err := r.migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		r.logger.Warn("MIGRATION", fmt.Sprintf("Detected dirty migration at version %d, forcing", version))
		if err := r.migrator.Force(int(version)); err != nil {
			return fmt.Errorf("failed to fix dirty migration: %w", err)
		}
	}

	if err := r.migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}

	if v, _, err := r.migrator.Version(); err == nil {
		r.logger.Info("MIGRATION", fmt.Sprintf("Current schema version: %d", v))
	}
	return nil
}

func (r *Runner) Down() error {
	if err := r.ensure(); err != nil {
		return err
	}
	if err := r.migrator.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// Steps moves n migrations up (n > 0) or down (n < 0).
func (r *Runner) Steps(n int) error {
	if err := r.ensure(); err != nil {
		return err
	}
	if err := r.migrator.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration steps %d failed: %w", n, err)
	}
	return nil
}

func (r *Runner) Version() (uint, bool, error) {
	if err := r.ensure(); err != nil {
		return 0, false, err
	}
	v, dirty, err := r.migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func (r *Runner) Close() error {
	if r.migrator == nil {
		return nil
	}
	sourceErr, databaseErr := r.migrator.Close()
	if sourceErr != nil {
		return fmt.Errorf("error closing migrator source: %w", sourceErr)
	}
	if databaseErr != nil {
		return fmt.Errorf("error closing migrator database: %w", databaseErr)
	}
	return nil
}
