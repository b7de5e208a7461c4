package storage

import (
	"path/filepath"
	"testing"
)

func TestMigrationManager_UpDown(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migration-test.db")

	mgr, err := NewMigrationManager(dbPath)
	if err != nil {
		t.Fatalf("Failed to create migration manager: %v", err)
	}

	status, err := mgr.Status()
	if err != nil {
		t.Fatalf("Failed to get status: %v", err)
	}
	if !status.Pending {
		t.Error("Fresh database should have pending migrations")
	}
	if status.Version != 0 {
		t.Errorf("Expected version 0, got %d", status.Version)
	}

	if err := mgr.Up(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	// Up is idempotent
	if err := mgr.Up(); err != nil {
		t.Fatalf("Second Up failed: %v", err)
	}

	status, err = mgr.Status()
	if err != nil {
		t.Fatalf("Failed to get status: %v", err)
	}
	if status.Pending || status.Dirty {
		t.Errorf("Expected clean, fully migrated database, got %+v", status)
	}
	if status.Version < 1 {
		t.Errorf("Expected version >= 1, got %d", status.Version)
	}

	if err := mgr.Down(); err != nil {
		t.Fatalf("Failed to roll back migrations: %v", err)
	}
	status, err = mgr.Status()
	if err != nil {
		t.Fatalf("Failed to get status: %v", err)
	}
	if !status.Pending {
		t.Error("Expected pending migrations after Down")
	}

	if err := mgr.Close(); err != nil {
		t.Errorf("Failed to close migration manager: %v", err)
	}
}

func TestMigrationManager_Steps(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "steps.db")

	mgr, err := NewMigrationManager(dbPath)
	if err != nil {
		t.Fatalf("Failed to create migration manager: %v", err)
	}
	defer mgr.Close()

	if err := mgr.Steps(1); err != nil {
		t.Fatalf("Failed to step: %v", err)
	}
	status, err := mgr.Status()
	if err != nil {
		t.Fatalf("Failed to get status: %v", err)
	}
	if status.Version != 1 {
		t.Errorf("Expected version 1, got %d", status.Version)
	}

	if err := mgr.Force(1); err != nil {
		t.Errorf("Failed to force version: %v", err)
	}
}

func TestLatestMigration(t *testing.T) {
	latest, err := latestMigration()
	if err != nil {
		t.Fatalf("Failed to read migrations: %v", err)
	}
	if latest < 1 {
		t.Errorf("Expected at least one migration, got %d", latest)
	}
}
