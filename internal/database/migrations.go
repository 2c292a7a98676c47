package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "journal schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS pets (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS logs (
    id TEXT PRIMARY KEY,
    pet_id TEXT NOT NULL REFERENCES pets(id) ON DELETE CASCADE,
    kind TEXT NOT NULL CHECK(kind IN ('food', 'stool', 'symptom', 'note')),
    ts_ms INTEGER NOT NULL,
    payload TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS journal_meta (
    key TEXT PRIMARY KEY,
    value INTEGER NOT NULL
);

INSERT OR IGNORE INTO journal_meta (key, value) VALUES ('version', 0);

CREATE INDEX IF NOT EXISTS idx_logs_pet_ts ON logs(pet_id, ts_ms);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "recall notices",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS recall_notices (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT UNIQUE NOT NULL,
    title TEXT NOT NULL,
    source TEXT,
    published_date TEXT,
    matched_terms TEXT NOT NULL,
    content TEXT,
    content_fetched INTEGER DEFAULT 0,
    collected_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_recall_notices_published ON recall_notices(published_date);
`)
			return err
		},
	},
	{
		Version:     3,
		Description: "weekly reports",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    pet_id TEXT NOT NULL,
    period_id TEXT NOT NULL,
    tldr TEXT NOT NULL,
    body_markdown TEXT NOT NULL,
    average_score INTEGER DEFAULT 0,
    log_count INTEGER DEFAULT 0,
    generated_at TEXT DEFAULT (datetime('now')),
    UNIQUE(pet_id, period_id)
);

CREATE INDEX IF NOT EXISTS idx_reports_period ON reports(period_id);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
