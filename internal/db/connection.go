package db

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/utleieskade/backend/internal/config"
	"github.com/utleieskade/backend/internal/logger"
	"github.com/utleieskade/backend/internal/models"
)

// Database wraps the gorm handle and tracks whether the server has reached it yet.
type Database struct {
	DB    *gorm.DB
	ready atomic.Bool
}

// DSN builds the driver connection string for cfg.
func DSN(cfg config.DatabaseConfig) string {
	switch cfg.Dialect {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
	case "sqlite":
		if cfg.Name == "" {
			return "file::memory:?cache=shared"
		}
		return cfg.Name
	default:
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, cfg.SSLMode)
	}
}

func dialector(cfg config.DatabaseConfig) gorm.Dialector {
	dsn := DSN(cfg)
	switch cfg.Dialect {
	case "mysql":
		// Skip the version query so opening never touches the network.
		return mysql.New(mysql.Config{DSN: dsn, SkipInitializeWithVersion: true})
	case "sqlite":
		return sqlite.Open(dsn)
	default:
		return postgres.Open(dsn)
	}
}

// newGormLogger reports failed and slow queries through the application logger.
// Lookups that find nothing are expected and stay quiet.
func newGormLogger() gormlogger.Interface {
	return gormlogger.New(logger.GetLogger(), gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormlogger.Error,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Open creates the handle without waiting for the server to answer.
// Use WaitReady (usually in a goroutine) to find out when it is reachable.
func Open(cfg config.DatabaseConfig) (*Database, error) {
	gdb, err := gorm.Open(dialector(cfg), &gorm.Config{
		Logger:               newGormLogger(),
		TranslateError:       true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 5
	}
	if cfg.Dialect == "sqlite" {
		// SQLite has a single writer; one connection avoids table-lock errors.
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return &Database{DB: gdb}, nil
}

// Ready reports whether a ping has succeeded.
func (d *Database) Ready() bool {
	return d.ready.Load()
}

// MarkReady flags the database as reachable without pinging. Used by tests.
func (d *Database) MarkReady() {
	d.ready.Store(true)
}

// Ping checks connectivity once.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// WaitReady pings with exponential backoff until the database answers or ctx ends.
func (d *Database) WaitReady(ctx context.Context) error {
	backoff := time.Second
	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := d.Ping(pingCtx)
		cancel()
		if err == nil {
			d.ready.Store(true)
			logger.Info("✅ Database connected successfully", map[string]interface{}{"attempt": attempt})
			return nil
		}

		logger.Warn("Database not reachable, retrying", map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
			"backoff": backoff.String(),
		})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// AutoMigrate creates the schema from the models. Production schemas come
// from the versioned SQL files applied by cmd/migrate.
func AutoMigrate(gdb *gorm.DB) error {
	for _, model := range models.All() {
		if err := gdb.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}
	logger.Info("✅ All database migrations completed successfully", nil)
	return nil
}
