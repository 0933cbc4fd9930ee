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
			queries := []string{
				`CREATE TABLE IF NOT EXISTS politicians (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					normalized_name TEXT NOT NULL,
					party TEXT,
					district TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_politicians_name ON politicians(name)`,
				`CREATE INDEX idx_politicians_normalized ON politicians(normalized_name)`,

				`CREATE TABLE IF NOT EXISTS extracted_candidates (
					id TEXT PRIMARY KEY,
					group_id TEXT NOT NULL,
					group_type TEXT NOT NULL,
					name TEXT NOT NULL,
					role TEXT NOT NULL DEFAULT '',
					party_raw TEXT,
					raw_text TEXT,
					matched_politician_id INTEGER,
					confidence REAL,
					status TEXT NOT NULL DEFAULT 'PENDING',
					note TEXT NOT NULL DEFAULT '',
					reviewed_by TEXT,
					reviewed_at DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					matched_at DATETIME,
					UNIQUE(group_id, name, role),
					FOREIGN KEY (matched_politician_id) REFERENCES politicians(id)
				)`,
				`CREATE INDEX idx_candidates_status ON extracted_candidates(status)`,
				`CREATE INDEX idx_candidates_group ON extracted_candidates(group_id)`,

				`CREATE TABLE IF NOT EXISTS affiliations (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					politician_id INTEGER NOT NULL,
					group_id TEXT NOT NULL,
					group_type TEXT NOT NULL,
					role TEXT NOT NULL,
					start_date DATETIME NOT NULL,
					end_date DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (politician_id) REFERENCES politicians(id)
				)`,
				`CREATE INDEX idx_affiliations_group ON affiliations(group_id)`,
				`CREATE INDEX idx_affiliations_politician ON affiliations(politician_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add review history for auditing manual decisions",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS review_history (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					candidate_id TEXT NOT NULL,
					decision TEXT NOT NULL,
					politician_id INTEGER,
					reviewer TEXT NOT NULL DEFAULT '',
					note TEXT NOT NULL DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (candidate_id) REFERENCES extracted_candidates(id)
				)`,
				`CREATE INDEX idx_review_history_candidate ON review_history(candidate_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Enforce single active affiliation per politician and group",
		Up: func(tx *sql.Tx) error {
			// Partial unique index: the check-then-insert in the creator is
			// racy on its own, this makes the database the arbiter.
			_, err := tx.Exec(`
				CREATE UNIQUE INDEX IF NOT EXISTS idx_affiliations_active
				ON affiliations(politician_id, group_id)
				WHERE end_date IS NULL
			`)
			return err
		},
	},
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

		slog.Info("Applied migration",
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
