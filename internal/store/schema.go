package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// The schema is identical for every SIEM backend so reports and queries
// stay cross-compatible.
var createStatements = []string{
	`CREATE TABLE IF NOT EXISTS collection_runs (
		run_id INTEGER PRIMARY KEY AUTOINCREMENT,
		collection_time TEXT NOT NULL,
		collection_date TEXT NOT NULL,
		interval_hours REAL NOT NULL,
		status TEXT DEFAULT 'success'
	)`,
	`CREATE TABLE IF NOT EXISTS event_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		collection_time TEXT NOT NULL,
		collection_date TEXT NOT NULL,
		window_start_ms INTEGER,
		window_end_ms INTEGER,
		window_seconds REAL,
		logsource_id INTEGER,
		logsource_name TEXT,
		logsource_type TEXT,
		event_count INTEGER DEFAULT 0,
		aggregated_event_count INTEGER DEFAULT 0,
		total_event_count INTEGER DEFAULT 0,
		unparsed_aggregated_events INTEGER DEFAULT 0,
		unparsed_total_events INTEGER DEFAULT 0,
		total_payload_bytes REAL DEFAULT 0,
		avg_payload_bytes REAL DEFAULT 0,
		interval_hours REAL DEFAULT 1,
		FOREIGN KEY (run_id) REFERENCES collection_runs(run_id)
	)`,
	`CREATE TABLE IF NOT EXISTS log_sources_inventory (
		logsource_id INTEGER,
		name TEXT,
		type_name TEXT,
		type_id INTEGER,
		enabled INTEGER,
		description TEXT,
		last_updated TEXT,
		PRIMARY KEY (logsource_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_event_metrics_date
		ON event_metrics(collection_date)`,
	`CREATE INDEX IF NOT EXISTS idx_event_metrics_logsource
		ON event_metrics(logsource_name)`,
}

// desiredColumns are the event_metrics columns added after the first
// release. Databases created by older versions get them through additive
// ALTER TABLE, preserving existing rows.
var desiredColumns = []struct {
	name       string
	columnType string
	defaultVal string
}{
	{"window_start_ms", "INTEGER", ""},
	{"window_end_ms", "INTEGER", ""},
	{"window_seconds", "REAL", ""},
	{"aggregated_event_count", "INTEGER", "0"},
	{"total_event_count", "INTEGER", "0"},
	{"unparsed_aggregated_events", "INTEGER", "0"},
	{"unparsed_total_events", "INTEGER", "0"},
}

func migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range createStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return ensureEventMetricsColumns(ctx, db)
}

func ensureEventMetricsColumns(ctx context.Context, db *sqlx.DB) error {
	type columnInfo struct {
		CID       int     `db:"cid"`
		Name      string  `db:"name"`
		Type      string  `db:"type"`
		NotNull   int     `db:"notnull"`
		DfltValue *string `db:"dflt_value"`
		PK        int     `db:"pk"`
	}

	var columns []columnInfo
	if err := db.SelectContext(ctx, &columns, "PRAGMA table_info(event_metrics)"); err != nil {
		return fmt.Errorf("inspect event_metrics schema: %w", err)
	}
	existing := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		existing[col.Name] = struct{}{}
	}

	for _, col := range desiredColumns {
		if _, ok := existing[col.name]; ok {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE event_metrics ADD COLUMN %s %s", col.name, col.columnType)
		if col.defaultVal != "" {
			stmt += " DEFAULT " + col.defaultVal
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s: %w", col.name, err)
		}
	}
	return nil
}
