package storage

import (
	"path/filepath"
	"testing"
)

func TestMigrationManager_Up(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migration-test.db")

	mgr, err := NewMigrationManager(dbPath)
	if err != nil {
		t.Fatalf("Failed to create migration manager: %v", err)
	}

	// Run all migrations twice, the second run is a no-op
	if err := mgr.Up(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	if err := mgr.Up(); err != nil {
		t.Fatalf("Second Up should be a no-op: %v", err)
	}

	version, dirty, err := mgr.Version()
	if err != nil {
		t.Fatalf("Failed to get migration version: %v", err)
	}
	if dirty {
		t.Error("Database is in dirty state after migrations")
	}
	if version < 1 {
		t.Errorf("Expected migration version >= 1, got %d", version)
	}

	if err := mgr.Close(); err != nil {
		t.Fatalf("Failed to close migration manager: %v", err)
	}
}

func TestMigrationManager_Down(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migration-down.db")

	mgr, err := NewMigrationManager(dbPath)
	if err != nil {
		t.Fatalf("Failed to create migration manager: %v", err)
	}
	defer mgr.Close()

	if err := mgr.Up(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	if err := mgr.Down(); err != nil {
		t.Fatalf("Failed to roll back migrations: %v", err)
	}

	version, _, err := mgr.Version()
	if err != nil {
		t.Fatalf("Failed to get migration version: %v", err)
	}
	if version != 0 {
		t.Errorf("Expected version 0 after rollback, got %d", version)
	}
}
