package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "interactions: persisted memory engine records",
		SQL: `
CREATE TABLE interactions (
    id               TEXT PRIMARY KEY,
    seq              INTEGER NOT NULL UNIQUE,
    prompt           TEXT NOT NULL,
    response         TEXT NOT NULL,

    -- Retrieval inputs
    embedding        BLOB,
    concepts         TEXT NOT NULL DEFAULT '[]',

    -- Retrieval state
    created_at       INTEGER NOT NULL,
    last_accessed_at INTEGER NOT NULL,
    access_count     INTEGER NOT NULL DEFAULT 1 CHECK (access_count > 0),
    decay_factor     REAL NOT NULL DEFAULT 1.0 CHECK (decay_factor > 0),
    tier             TEXT NOT NULL CHECK (tier IN ('short-term', 'long-term'))
);

CREATE INDEX idx_interactions_tier ON interactions(tier);
CREATE INDEX idx_interactions_seq  ON interactions(seq);
`,
	},
	{
		Version:     2,
		Description: "snapshots: save-cycle audit trail",
		SQL: `
CREATE TABLE snapshots (
    id          INTEGER PRIMARY KEY,
    saved_at    INTEGER NOT NULL,
    short_count INTEGER NOT NULL,
    long_count  INTEGER NOT NULL
);

CREATE INDEX idx_snapshots_saved_at ON snapshots(saved_at DESC);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
