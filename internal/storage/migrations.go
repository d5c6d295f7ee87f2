package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS sellers (
					id TEXT PRIMARY KEY,
					display_name TEXT NOT NULL,
					verified BOOLEAN NOT NULL DEFAULT 0,
					custom_fee_rate REAL,
					manual_override BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS sales (
					id TEXT PRIMARY KEY,
					seller_id TEXT NOT NULL,
					title TEXT NOT NULL,
					gross_cents INTEGER NOT NULL CHECK (gross_cents > 0),
					platform_fee_cents INTEGER NOT NULL,
					processor_fee_cents INTEGER NOT NULL,
					net_cents INTEGER NOT NULL,
					status TEXT NOT NULL,
					sold_at DATETIME NOT NULL,
					CHECK (platform_fee_cents + processor_fee_cents + net_cents = gross_cents),
					FOREIGN KEY (seller_id) REFERENCES sellers(id)
				)`,
				`CREATE INDEX idx_sales_seller_sold_at ON sales(seller_id, sold_at)`,

				`CREATE TABLE IF NOT EXISTS disputes (
					id TEXT PRIMARY KEY,
					seller_id TEXT NOT NULL,
					sale_id TEXT,
					reason TEXT,
					status TEXT NOT NULL,
					opened_at DATETIME NOT NULL,
					resolved_at DATETIME,
					FOREIGN KEY (seller_id) REFERENCES sellers(id)
				)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Add verified match cache",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS verified_matches (
					hash TEXT PRIMARY KEY,
					external_id TEXT NOT NULL,
					title TEXT NOT NULL,
					issue_number TEXT,
					publisher TEXT,
					cover_url TEXT,
					year INTEGER,
					confidence REAL NOT NULL DEFAULT 0,
					use_count INTEGER NOT NULL DEFAULT 0,
					verified_at DATETIME NOT NULL
				)`,
			)
		},
	},
	{
		Version:     3,
		Description: "Index disputes for eligibility lookups",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE INDEX IF NOT EXISTS idx_disputes_seller_opened_at ON disputes(seller_id, opened_at)`,
				`CREATE INDEX IF NOT EXISTS idx_verified_matches_external_id ON verified_matches(external_id)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Debug("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the migration version the database is at.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
