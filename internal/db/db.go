package db

import (
	"database/sql"
	"fmt"

	"market-crafter/internal/logger"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	sql *sql.DB
}

// Open opens (or creates) the SQLite database at path and runs migrations.
// ":memory:" opens a private in-memory database.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would get its own empty database.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Success("DB", fmt.Sprintf("Opened %s", path))
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate() error {
	version := 0
	// Try to read current version
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS items (
				id   INTEGER PRIMARY KEY,
				name TEXT NOT NULL DEFAULT ''
			);

			CREATE TABLE IF NOT EXISTS recipes (
				item_id INTEGER PRIMARY KEY REFERENCES items(id) ON DELETE CASCADE,
				outputs INTEGER NOT NULL DEFAULT 1,
				level   INTEGER NOT NULL DEFAULT 0
			);

			CREATE TABLE IF NOT EXISTS ingredients (
				item_id       INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
				position      INTEGER NOT NULL,
				ingredient_id INTEGER NOT NULL,
				count         INTEGER NOT NULL,
				PRIMARY KEY (item_id, position)
			);

			CREATE TABLE IF NOT EXISTS listings (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				item_id    INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
				kind       TEXT NOT NULL,
				price      REAL NOT NULL,
				count      INTEGER NOT NULL,
				is_hq      INTEGER NOT NULL DEFAULT 0,
				world      TEXT NOT NULL DEFAULT '',
				name       TEXT NOT NULL DEFAULT '',
				days_since REAL NOT NULL DEFAULT 0
			);
			CREATE INDEX IF NOT EXISTS idx_listings_item ON listings(item_id, kind);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("DB", "Applied migration v1")
	}

	if version < 2 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS analysis_runs (
				id          TEXT PRIMARY KEY,
				timestamp   TEXT NOT NULL,
				count       INTEGER NOT NULL,
				hq          INTEGER NOT NULL,
				home_world  TEXT NOT NULL DEFAULT '',
				top_count   INTEGER NOT NULL,
				top_item_id INTEGER,
				top_profit  REAL,
				duration_ms INTEGER NOT NULL DEFAULT 0,
				params_json TEXT NOT NULL DEFAULT '{}'
			);
			CREATE INDEX IF NOT EXISTS idx_analysis_runs_ts ON analysis_runs(timestamp);

			INSERT OR IGNORE INTO schema_version (version) VALUES (2);
		`)
		if err != nil {
			return fmt.Errorf("migration v2: %w", err)
		}
		logger.Info("DB", "Applied migration v2 (analysis runs)")
	}

	if version < 3 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS settings (
				key   TEXT PRIMARY KEY,
				value TEXT NOT NULL
			);

			INSERT OR IGNORE INTO schema_version (version) VALUES (3);
		`)
		if err != nil {
			return fmt.Errorf("migration v3: %w", err)
		}
		logger.Info("DB", "Applied migration v3 (settings)")
	}

	return nil
}
