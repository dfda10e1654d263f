// Package sqlite persists ledger snapshots in a SQLite key-value table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"bilancio/internal/storage"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db  *sql.DB
	key string
}

var (
	_ storage.SnapshotStore = (*Repository)(nil)
	_ storage.Timestamped   = (*Repository)(nil)
)

// NewRepository opens (creating if needed) the database at dbPath, applies
// migrations and stores snapshots under key. An empty key means
// storage.DefaultKey.
func NewRepository(dbPath, key string) (*Repository, error) {
	if key == "" {
		key = storage.DefaultKey
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, key: key}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load implements storage.SnapshotStore
func (r *Repository) Load(ctx context.Context) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM kv_store WHERE key = ?`, r.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", r.key, err)
	}
	return value, nil
}

// Save implements storage.SnapshotStore
func (r *Repository) Save(ctx context.Context, data []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		r.key, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", r.key, err)
	}

	slog.DebugContext(ctx, "Snapshot saved to SQLite", "key", r.key, "bytes", len(data))
	return nil
}

// UpdatedAt returns when the snapshot was last written.
func (r *Repository) UpdatedAt(ctx context.Context) (time.Time, error) {
	var ts time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT updated_at FROM kv_store WHERE key = ?`, r.key).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, storage.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read snapshot timestamp: %w", err)
	}
	return ts, nil
}
