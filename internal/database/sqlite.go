package database

import (
	"context"
	"database/sql"
	"fmt"

	// Register the pure-Go sqlite driver.
	_ "modernc.org/sqlite"
)

// OpenSQLite opens the SQLite database at path and creates the schema.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases alive across calls.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to ping sqlite database: %w", err)
	}

	if err := RunSQLiteMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// RunSQLiteMigrations creates the SQLite schema.
func RunSQLiteMigrations(ctx context.Context, db *sql.DB) error {
	migrations := []string{
		`PRAGMA busy_timeout = 5000`,

		`CREATE TABLE IF NOT EXISTS sessions (
			phone TEXT PRIMARY KEY,
			step TEXT NOT NULL DEFAULT 'idle',
			draft TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS expenses (
			id TEXT PRIMARY KEY,
			message_id TEXT UNIQUE,
			amount TEXT NOT NULL,
			date TEXT NOT NULL,
			category TEXT NOT NULL,
			note TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_expenses_date ON expenses(date)`,
	}

	for i, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("sqlite migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
