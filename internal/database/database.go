// Package database opens the SQL backends and keeps their schema current.
package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"misa/internal/config"
	"misa/internal/logger"
	"misa/internal/models"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// MigrationsSource is where golang-migrate reads the postgres schema from.
const MigrationsSource = "file://migrations"

// Models lists every table AutoMigrate manages on SQLite.
var Models = []interface{}{
	&models.User{},
	&models.Transaction{},
	&models.AuditLog{},
}

// ErrNoDatabase is returned for backends that do not use SQL.
var ErrNoDatabase = errors.New("data backend has no database")

// Manager handles database operations
type Manager struct {
	db           *gorm.DB
	backend      string
	migrationURL string
}

// NewManager connects to the database selected by cfg.DataBackend.
func NewManager(cfg *config.Config) (*Manager, error) {
	switch cfg.DataBackend {
	case config.BackendSQLite:
		return newSQLiteManager(cfg.SQLitePath)
	case config.BackendPostgres:
		return newPostgresManager(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNoDatabase, cfg.DataBackend)
	}
}

func newSQLiteManager(path string) (*Manager, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite allows one writer; a single connection serializes writes.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return &Manager{db: db, backend: config.BackendSQLite}, nil
}

func newPostgresManager(cfg *config.Config) (*Manager, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.PostgresDSN(),
		PreferSimpleProtocol: true, // Required for Supabase Supavisor; harmless for direct connections
	}), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Manager{db: db, backend: config.BackendPostgres, migrationURL: cfg.PostgresURL()}, nil
}

// Migrate brings the schema up to date: SQL migrations on postgres,
// AutoMigrate on SQLite.
func (m *Manager) Migrate() error {
	if m.backend == config.BackendPostgres {
		return m.RunMigrations()
	}

	logger.Get().Infow("Auto-migrating sqlite schema", "tables", len(Models))
	if err := m.db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	return nil
}

// RunMigrations applies pending SQL migrations from the migrations/ directory.
func (m *Manager) RunMigrations() error {
	logger.Get().Info("Running database migrations...")

	mig, err := migrate.New(MigrationsSource, m.migrationURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := mig.Close()
		if srcErr != nil {
			logger.Get().Warnf("migrate source close error: %v", srcErr)
		}
		if dbErr != nil {
			logger.Get().Warnf("migrate database close error: %v", dbErr)
		}
	}()

	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	logger.Get().Info("Database migrations completed successfully")
	return nil
}

// DB returns the underlying GORM database instance
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// Backend reports which SQL backend the manager is connected to.
func (m *Manager) Backend() string {
	return m.backend
}

// Close releases the connection pool.
func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
