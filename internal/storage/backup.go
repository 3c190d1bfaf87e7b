package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// BackupInfo describes a written snapshot.
type BackupInfo struct {
	Path     string
	Size     int64
	Checksum string // SHA-256 of the snapshot file
}

// Backup writes a consistent snapshot of the card database into dir, named
// after the current time, and verifies it can be opened. It is taken before
// bulk imports so a bad import can be rolled back by swapping files.
func (db *DB) Backup(ctx context.Context, dir string) (*BackupInfo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := fmt.Sprintf("cards_%s.db", time.Now().Format("20060102_150405.000"))
	path := filepath.Join(dir, name)

	// VACUUM INTO copies the database atomically without an exclusive lock
	if _, err := db.conn.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return nil, fmt.Errorf("failed to back up database: %w", err)
	}

	if err := verifyBackup(ctx, path); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("backup verification failed: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup: %w", err)
	}
	checksum, err := fileChecksum(path)
	if err != nil {
		return nil, fmt.Errorf("failed to checksum backup: %w", err)
	}

	return &BackupInfo{Path: path, Size: info.Size(), Checksum: checksum}, nil
}

// verifyBackup checks that the snapshot is a readable database.
func verifyBackup(ctx context.Context, path string) error {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open backup as database: %w", err)
	}
	defer func() { _ = conn.Close() }()

	var tables int
	if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'").Scan(&tables); err != nil {
		return fmt.Errorf("failed to query backup database: %w", err)
	}
	return nil
}

func fileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
