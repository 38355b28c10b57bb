// Package database persists the slot message ids and the action log in
// SQLite.
package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// DB wraps sqlx.DB
type DB struct {
	*sqlx.DB
}

// New opens the database at path, creating its directory, and checks the
// connection within ctx
func New(ctx context.Context, path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL lets /status read the action log while a handler writes to it
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sqlx.ConnectContext(ctx, "sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	return &DB{db}, nil
}

// Version returns the schema version
func (db *DB) Version(ctx context.Context) (int, error) {
	var version int
	if err := db.GetContext(ctx, &version, "PRAGMA user_version"); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// Migrate applies the migrations the database has not seen yet, each in
// its own transaction, and returns how many it applied
func (db *DB) Migrate(ctx context.Context) (int, error) {
	version, err := db.Version(ctx)
	if err != nil {
		return 0, err
	}
	if version > len(migrations) {
		return 0, fmt.Errorf("database schema version %d is newer than this binary (%d)", version, len(migrations))
	}

	applied := 0
	for i := version; i < len(migrations); i++ {
		if err := db.step(ctx, i+1, migrations[i]); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

func (db *DB) step(ctx context.Context, version int, stmt string) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to run migration %d: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", version, err)
	}
	return nil
}
