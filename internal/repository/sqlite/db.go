// Package sqlite is the embedded incident store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pratik-mahalle/incidents/internal/config"
	"github.com/pratik-mahalle/incidents/migrations"
)

// New creates a new database connection. The parent directory of
// cfg.Path is created if missing.
func New(cfg config.DatabaseConfig) (*sql.DB, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Open connects to the store and brings its schema up to date. It is
// safe to call on every startup.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := InitSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// InitSchema applies any pending embedded migrations
func InitSchema(ctx context.Context, db *sql.DB) error {
	if err := RunMigrations(ctx, db, migrations.GetFS()); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// dsn sets per-connection pragmas through the driver so they survive
// connection recycling.
func dsn(cfg config.DatabaseConfig) string {
	busy := cfg.BusyTimeout.Milliseconds()
	return fmt.Sprintf(
		"%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_txlock=immediate",
		cfg.Path, busy,
	)
}
