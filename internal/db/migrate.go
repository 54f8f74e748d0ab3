package db

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/utleieskade/backend/internal/config"
	"github.com/utleieskade/backend/internal/logger"
)

// Migrator applies the versioned SQL files under migrations/<dialect>.
type Migrator struct {
	m *migrate.Migrate
}

// MigrationStatus is the schema version currently recorded in the database.
type MigrationStatus struct {
	Version uint
	Dirty   bool
	Applied bool
}

// NewMigrator opens a dedicated connection for migrations. dir is the root
// holding one sub-directory per dialect.
func NewMigrator(cfg config.DatabaseConfig, dir string) (*Migrator, error) {
	var (
		sqlDB  *sql.DB
		driver database.Driver
		err    error
	)
	switch cfg.Dialect {
	case "postgres":
		if sqlDB, err = sql.Open("postgres", DSN(cfg)); err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		driver, err = postgres.WithInstance(sqlDB, &postgres.Config{})
	case "mysql":
		if sqlDB, err = sql.Open("mysql", DSN(cfg)+"&multiStatements=true"); err != nil {
			return nil, fmt.Errorf("failed to open mysql: %w", err)
		}
		driver, err = mysql.WithInstance(sqlDB, &mysql.Config{})
	default:
		return nil, fmt.Errorf("versioned migrations are not available for dialect %q", cfg.Dialect)
	}
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to create %s migration driver: %w", cfg.Dialect, err)
	}

	scripts, err := filepath.Abs(filepath.Join(dir, cfg.Dialect))
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to resolve migrations path: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+filepath.ToSlash(scripts), cfg.Dialect, driver)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return &Migrator{m: m}, nil
}

func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

// Status reports the current version.
func (mg *Migrator) Status() (MigrationStatus, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{}, nil
	}
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("failed to read migration version: %w", err)
	}
	return MigrationStatus{Version: version, Dirty: dirty, Applied: true}, nil
}

// Up applies every pending migration.
func (mg *Migrator) Up() error {
	if err := mg.checkClean(); err != nil {
		return err
	}
	return mg.run("up", mg.m.Up)
}

// Down rolls back steps migrations.
func (mg *Migrator) Down(steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive")
	}
	return mg.run("down", func() error { return mg.m.Steps(-steps) })
}

// Goto migrates up or down to version.
func (mg *Migrator) Goto(version uint) error {
	if err := mg.checkClean(); err != nil {
		return err
	}
	return mg.run("goto", func() error { return mg.m.Migrate(version) })
}

// Force marks version as applied and clears the dirty flag.
func (mg *Migrator) Force(version int) error {
	return mg.m.Force(version)
}

func (mg *Migrator) checkClean() error {
	status, err := mg.Status()
	if err != nil {
		return err
	}
	if status.Dirty {
		return fmt.Errorf("database is in dirty state at version %d, fix it and run force", status.Version)
	}
	return nil
}

func (mg *Migrator) run(op string, fn func() error) error {
	before, _ := mg.Status()
	if err := fn(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration %s failed: %w", op, err)
	}
	after, _ := mg.Status()
	logger.Info("Migration finished", map[string]interface{}{
		"operation":    op,
		"from_version": before.Version,
		"to_version":   after.Version,
	})
	return nil
}
