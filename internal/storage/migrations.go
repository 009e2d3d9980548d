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

// defaultCategories is the household taxonomy seeded on first migration.
// Detectors read the category set from the database at runtime, so this
// list can be extended without code changes.
var defaultCategories = []struct {
	name        string
	description string
}{
	{"vehicle", "Car and transport: insurance, roadworthiness, service, fuel, parking, fines"},
	{"medical", "Health: hospital, clinic, pharmacy, prescriptions, test results"},
	{"home", "Property: mortgage, rent, solicitor, property tax, maintenance"},
	{"utilities", "Household services: electricity, gas, water, broadband, phone"},
	{"financial", "Banking: statements, loans, credit cards, savings, pensions"},
	{"insurance", "General insurance policies (not car or home)"},
	{"employment", "Work: payslips, contracts, employment letters"},
	{"tax", "Tax documents: returns, certs, revenue correspondence"},
	{"legal", "Legal: contracts, court documents, legal letters"},
	{"education", "Education: school fees, courses, certificates"},
	{"travel", "Travel: bookings, tickets, visas, travel insurance"},
	{"shopping", "General purchases: receipts, orders, warranties"},
	{"government", "Government: forms, licenses, permits, official letters"},
	{"personal", "Personal documents that fit nothing else"},
	{"other", "Uncategorized documents"},
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Documents, summaries and category taxonomy",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS documents (
					id TEXT PRIMARY KEY,
					filename TEXT NOT NULL,
					text TEXT,
					captured_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_documents_captured ON documents(captured_at)`,

				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					description TEXT,
					is_active INTEGER NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS summaries (
					document_id TEXT PRIMARY KEY,
					document_type TEXT,
					vendor TEXT,
					date_raw TEXT,
					amount REAL,
					summary_text TEXT,
					category TEXT,
					status TEXT NOT NULL DEFAULT 'UNCATEGORIZED',
					entity_id TEXT,
					entity_confidence REAL NOT NULL DEFAULT 0,
					generated_at DATETIME,
					FOREIGN KEY (document_id) REFERENCES documents(id)
				)`,
				`CREATE INDEX idx_summaries_category ON summaries(category)`,
				`CREATE INDEX idx_summaries_vendor ON summaries(vendor)`,

				`CREATE TABLE IF NOT EXISTS category_corrections (
					id TEXT PRIMARY KEY,
					document_id TEXT,
					filename TEXT,
					document_type TEXT,
					vendor TEXT,
					old_category TEXT,
					new_category TEXT NOT NULL,
					corrected_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_corrections_at ON category_corrections(corrected_at)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}

			for _, cat := range defaultCategories {
				if _, err := tx.Exec(
					`INSERT INTO categories (name, description) VALUES (?, ?)`,
					cat.name, cat.description,
				); err != nil {
					return fmt.Errorf("failed to seed category %q: %w", cat.name, err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Entity registry and pending suggestions",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS entities (
					id TEXT PRIMARY KEY,
					entity_type TEXT NOT NULL,
					name TEXT NOT NULL,
					identifier TEXT,
					identifier_norm TEXT,
					metadata TEXT,
					owner_id TEXT,
					is_active INTEGER NOT NULL DEFAULT 1,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL,
					FOREIGN KEY (owner_id) REFERENCES entities(id)
				)`,
				`CREATE UNIQUE INDEX idx_entities_type_identifier
					ON entities(entity_type, identifier_norm)
					WHERE identifier_norm IS NOT NULL AND identifier_norm != ''`,

				`CREATE TABLE IF NOT EXISTS entity_suggestions (
					id TEXT PRIMARY KEY,
					document_id TEXT,
					entity_type TEXT NOT NULL,
					name TEXT NOT NULL,
					identifier TEXT,
					status TEXT NOT NULL DEFAULT 'pending',
					created_at DATETIME NOT NULL,
					resolved_at DATETIME
				)`,
				`CREATE INDEX idx_suggestions_status ON entity_suggestions(status)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}

			// Every household has exactly one shared fallback entity.
			if _, err := tx.Exec(
				`INSERT INTO entities (id, entity_type, name, is_active, created_at, updated_at)
				 VALUES (?, 'household', 'Household', 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
				householdEntityID,
			); err != nil {
				return fmt.Errorf("failed to seed household entity: %w", err)
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Insights",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS insights (
					id TEXT PRIMARY KEY,
					insight_type TEXT NOT NULL,
					priority TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'active',
					title TEXT NOT NULL,
					description TEXT,
					action TEXT,
					dedup_key TEXT NOT NULL,
					entity_id TEXT,
					entity_name TEXT,
					entity_type TEXT,
					related_docs TEXT,
					metadata TEXT,
					generated_at DATETIME NOT NULL,
					expires_at DATETIME,
					dismissed_at DATETIME,
					FOREIGN KEY (entity_id) REFERENCES entities(id)
				)`,
				`CREATE INDEX idx_insights_status ON insights(status)`,
				`CREATE UNIQUE INDEX idx_insights_dedup
					ON insights(insight_type, entity_id, dedup_key)
					WHERE status = 'active'`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
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
