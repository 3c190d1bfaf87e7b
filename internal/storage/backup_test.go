package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func TestDB_Backup(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()

	db, err := Open(ctx, DefaultConfig(filepath.Join(tmpDir, "cards.db")))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if _, err := db.Conn().ExecContext(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)"); err != nil {
		t.Fatalf("Failed to create test table: %v", err)
	}
	if _, err := db.Conn().ExecContext(ctx, "INSERT INTO test (name) VALUES ('Lightning Bolt')"); err != nil {
		t.Fatalf("Failed to insert test data: %v", err)
	}

	info, err := db.Backup(ctx, filepath.Join(tmpDir, "backups"))
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	if filepath.Dir(info.Path) != filepath.Join(tmpDir, "backups") {
		t.Errorf("backup written to %s", info.Path)
	}
	if info.Size == 0 {
		t.Error("backup should not be empty")
	}
	if len(info.Checksum) != 64 {
		t.Errorf("checksum %q is not a SHA-256 hex digest", info.Checksum)
	}

	backup, err := sql.Open("sqlite", info.Path)
	if err != nil {
		t.Fatalf("Failed to open backup: %v", err)
	}
	defer backup.Close()

	var name string
	if err := backup.QueryRowContext(ctx, "SELECT name FROM test WHERE id = 1").Scan(&name); err != nil {
		t.Fatalf("Failed to query backup: %v", err)
	}
	if name != "Lightning Bolt" {
		t.Errorf("backup row = %q, want %q", name, "Lightning Bolt")
	}
}

func TestDB_BackupBadDirectory(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()

	db, err := Open(ctx, DefaultConfig(filepath.Join(tmpDir, "cards.db")))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	blocker := filepath.Join(tmpDir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	if _, err := db.Backup(ctx, filepath.Join(blocker, "backups")); err == nil {
		t.Error("Backup() into a path below a file should fail")
	}
}
