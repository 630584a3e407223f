package database

import (
	"errors"
	"path/filepath"
	"testing"

	"misa/internal/config"
	"misa/internal/models"
)

func TestNewManager_SQLite(t *testing.T) {
	cfg := &config.Config{
		DataBackend: config.BackendSQLite,
		SQLitePath:  filepath.Join(t.TempDir(), "nested", "misa.db"),
	}

	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	if m.Backend() != config.BackendSQLite {
		t.Errorf("expected sqlite backend, got %s", m.Backend())
	}
	if err := m.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	for _, model := range []interface{}{&models.User{}, &models.Transaction{}, &models.AuditLog{}} {
		if !m.DB().Migrator().HasTable(model) {
			t.Errorf("expected table for %T", model)
		}
	}

	// Running twice is a no-op.
	if err := m.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestNewManager_FileBackend(t *testing.T) {
	_, err := NewManager(&config.Config{DataBackend: config.BackendFile})
	if !errors.Is(err, ErrNoDatabase) {
		t.Fatalf("expected ErrNoDatabase, got %v", err)
	}
}
