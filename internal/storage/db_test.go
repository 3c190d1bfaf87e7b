package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("test.db")

	if config.Path != "test.db" {
		t.Errorf("expected path 'test.db', got '%s'", config.Path)
	}
	if config.MaxOpenConns != 4 {
		t.Errorf("expected MaxOpenConns 4, got %d", config.MaxOpenConns)
	}
	if config.ConnMaxLifetime != 5*time.Minute {
		t.Errorf("expected ConnMaxLifetime 5m, got %v", config.ConnMaxLifetime)
	}
	if config.BusyTimeout != 5*time.Second {
		t.Errorf("expected BusyTimeout 5s, got %v", config.BusyTimeout)
	}
	if config.JournalMode != "WAL" {
		t.Errorf("expected JournalMode 'WAL', got '%s'", config.JournalMode)
	}
	if config.AutoMigrate {
		t.Error("expected AutoMigrate to default to false")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, DefaultConfig(":memory:"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		t.Errorf("failed to ping database: %v", err)
	}
	if db.Conn() == nil {
		t.Error("expected non-nil connection")
	}
}

func TestOpenWithNilConfig(t *testing.T) {
	if _, err := Open(context.Background(), nil); err == nil {
		t.Error("expected error when opening with nil config")
	}
}

func TestOpenWithEmptyPath(t *testing.T) {
	if _, err := Open(context.Background(), &Config{}); err == nil {
		t.Error("expected error when opening with empty path")
	}
}

func TestOpenInMemoryRejectsAutoMigrate(t *testing.T) {
	config := DefaultConfig(":memory:")
	config.AutoMigrate = true

	_, err := Open(context.Background(), config)
	if err == nil || !strings.Contains(err.Error(), "auto-migrate") {
		t.Errorf("expected auto-migrate error, got %v", err)
	}
}

func TestOpenAutoMigrate(t *testing.T) {
	ctx := context.Background()
	config := DefaultConfig(filepath.Join(t.TempDir(), "nested", "cards.db"))
	config.AutoMigrate = true

	db, err := Open(ctx, config)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"cards", "sets"} {
		var name string
		err := db.Conn().QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("expected table %s to exist: %v", table, err)
		}
	}
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, DefaultConfig(":memory:"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("failed to close database: %v", err)
	}

	// Ping should fail after close
	if err := db.Ping(ctx); err == nil {
		t.Error("expected error when pinging closed database")
	}
}

func TestWithTransaction(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, DefaultConfig(":memory:"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if _, err := db.Conn().ExecContext(ctx, `CREATE TABLE t (v INTEGER)`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	count := func() int {
		var n int
		if err := db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM t`).Scan(&n); err != nil {
			t.Fatalf("failed to count rows: %v", err)
		}
		return n
	}

	err = db.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO t (v) VALUES (1)`)
		return err
	})
	if err != nil {
		t.Fatalf("WithTransaction() error = %v", err)
	}
	if n := count(); n != 1 {
		t.Errorf("rows after commit = %d, want 1", n)
	}

	errBoom := errors.New("boom")
	err = db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO t (v) VALUES (2)`); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Errorf("WithTransaction() error = %v, want %v", err, errBoom)
	}
	if n := count(); n != 1 {
		t.Errorf("rows after rollback = %d, want 1", n)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to be re-raised")
			}
		}()
		_ = db.WithTransaction(ctx, func(tx *sql.Tx) error {
			_, _ = tx.ExecContext(ctx, `INSERT INTO t (v) VALUES (3)`)
			panic("boom")
		})
	}()
	if n := count(); n != 1 {
		t.Errorf("rows after panic = %d, want 1", n)
	}
}
