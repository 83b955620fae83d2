// Package store persists collection runs, event metrics and the log
// source inventory in a local SQLite database, and serves the aggregate
// queries reports are built from.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/lsardim1/siem-log-collectors/internal/domain"
	"github.com/lsardim1/siem-log-collectors/internal/logger"
)

// Store wraps the metrics database. Safe for use from a single
// collection loop; SQLite serializes concurrent writers anyway.
type Store struct {
	db  *sqlx.DB
	log logger.Interface
}

// Open opens (or creates) the database at path and applies migrations.
func Open(path string, log logger.Interface) (*Store, error) {
	if log == nil {
		log = logger.NewNoOp()
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database %s: %w", path, err)
	}
	if err := migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, log: log.WithComponent("store")}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunWindow carries the run identity and window bounds every metric row
// of one collection cycle shares.
type RunWindow struct {
	RunID          int64
	CollectionTime string
	CollectionDate string
	WindowStartMS  int64
	WindowEndMS    int64
	WindowSeconds  float64
	IntervalHours  float64
}

// SaveCollectionRun records a new run and returns its id. Runs are
// created before the backend is queried so failures stay visible.
func (s *Store) SaveCollectionRun(ctx context.Context, collectionTime, collectionDate string, intervalHours float64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO collection_runs (collection_time, collection_date, interval_hours) VALUES (?, ?, ?)",
		collectionTime, collectionDate, intervalHours)
	if err != nil {
		return 0, fmt.Errorf("save collection run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("collection run id: %w", err)
	}
	return runID, nil
}

// UpdateRunStatus marks a run, typically as failed when the backend
// query did not complete.
func (s *Store) UpdateRunStatus(ctx context.Context, runID int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE collection_runs SET status = ? WHERE run_id = ?", status, runID)
	if err != nil {
		return fmt.Errorf("update run %d status: %w", runID, err)
	}
	return nil
}

const insertEventMetric = `INSERT INTO event_metrics
	(run_id, collection_time, collection_date,
	 window_start_ms, window_end_ms, window_seconds,
	 logsource_id, logsource_name, logsource_type,
	 event_count, aggregated_event_count, total_event_count,
	 unparsed_aggregated_events, unparsed_total_events,
	 total_payload_bytes, avg_payload_bytes, interval_hours)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SaveEventMetrics writes one row per normalized metric for the window,
// all in a single transaction.
func (s *Store) SaveEventMetrics(ctx context.Context, window RunWindow, metrics []domain.NormalizedMetric) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin metrics transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range metrics {
		name := m.LogSourceName
		if name == "" {
			name = "Unknown"
		}
		typeName := m.LogSourceType
		if typeName == "" {
			typeName = "Unknown"
		}
		total := m.TotalEventCount
		if total == 0 {
			total = m.AggregatedEventCount
		}

		_, err := tx.ExecContext(ctx, insertEventMetric,
			window.RunID, window.CollectionTime, window.CollectionDate,
			window.WindowStartMS, window.WindowEndMS, window.WindowSeconds,
			m.LogSourceID, name, typeName,
			m.AggregatedEventCount, m.AggregatedEventCount, total,
			m.UnparsedAggregated, m.UnparsedTotal,
			m.TotalPayloadBytes, m.AvgPayloadBytes, window.IntervalHours)
		if err != nil {
			return fmt.Errorf("insert event metric: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit event metrics: %w", err)
	}
	s.log.Info("event metrics saved", "count", len(metrics), "run_id", window.RunID)
	return nil
}

// SaveInventory upserts source catalog entries keyed by logsource_id.
func (s *Store) SaveInventory(ctx context.Context, entries []domain.SourceInventoryEntry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin inventory transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, src := range entries {
		name := src.Name
		if name == "" {
			name = "Unknown"
		}
		typeName := src.TypeName
		if typeName == "" {
			typeName = "Unknown"
		}
		enabled := 0
		if src.Enabled {
			enabled = 1
		}

		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO log_sources_inventory
				(logsource_id, name, type_name, type_id, enabled, description, last_updated)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
			src.LogSourceID, name, typeName, src.TypeID, enabled, src.Description, now)
		if err != nil {
			return fmt.Errorf("upsert inventory entry %d: %w", src.LogSourceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit inventory: %w", err)
	}
	s.log.Info("inventory saved", "count", len(entries))
	return nil
}

// FillZeroEventRows inserts zero-valued metric rows for every enabled
// inventory source absent from the sample. Without this covered_seconds
// would only count windows where a source had events, inflating the 24h
// projection for intermittent sources. With it every observed window
// counts as coverage even when empty, which keeps the daily projection
// mathematically correct. Returns the number of rows added.
func (s *Store) FillZeroEventRows(ctx context.Context, window RunWindow, seen map[int64]struct{}) (int, error) {
	var inventory []struct {
		LogSourceID int64   `db:"logsource_id"`
		Name        *string `db:"name"`
		TypeName    *string `db:"type_name"`
	}
	err := s.db.SelectContext(ctx, &inventory,
		"SELECT logsource_id, name, type_name FROM log_sources_inventory WHERE enabled = 1")
	if err != nil {
		return 0, fmt.Errorf("load enabled inventory: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin zero-fill transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	zeroCount := 0
	for _, src := range inventory {
		if _, ok := seen[src.LogSourceID]; ok {
			continue
		}
		name := "Unknown"
		if src.Name != nil && *src.Name != "" {
			name = *src.Name
		}
		typeName := "Unknown"
		if src.TypeName != nil && *src.TypeName != "" {
			typeName = *src.TypeName
		}

		_, err := tx.ExecContext(ctx, insertEventMetric,
			window.RunID, window.CollectionTime, window.CollectionDate,
			window.WindowStartMS, window.WindowEndMS, window.WindowSeconds,
			src.LogSourceID, name, typeName,
			0, 0, 0, 0, 0, 0.0, 0.0, window.IntervalHours)
		if err != nil {
			return 0, fmt.Errorf("insert zero-event row: %w", err)
		}
		zeroCount++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit zero-fill: %w", err)
	}
	if zeroCount > 0 {
		s.log.Debug("zero-event rows added for full coverage", "count", zeroCount)
	}
	return zeroCount, nil
}

// GetDailySummary aggregates metrics per (collection_date, source).
// Grouping is by logsource_id, not name, so sources sharing a name or
// renamed mid-collection never get mixed together.
func (s *Store) GetDailySummary(ctx context.Context) ([]domain.DailySummaryRow, error) {
	var rows []domain.DailySummaryRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT
			collection_date,
			logsource_id,
			MAX(logsource_name) as logsource_name,
			MAX(logsource_type) as logsource_type,
			SUM(total_event_count) as total_events,
			SUM(aggregated_event_count) as aggregated_events,
			SUM(unparsed_total_events) as unparsed_total_events,
			SUM(unparsed_aggregated_events) as unparsed_aggregated_events,
			SUM(total_payload_bytes) as total_bytes,
			CASE
				WHEN SUM(total_event_count) > 0 THEN (SUM(total_payload_bytes) / SUM(total_event_count))
				ELSE 0
			END as avg_event_size_bytes,
			COUNT(DISTINCT collection_time) as collection_count,
			SUM(window_seconds) as covered_seconds
		FROM event_metrics
		GROUP BY collection_date, logsource_id
		ORDER BY collection_date, total_events DESC`)
	if err != nil {
		return nil, fmt.Errorf("daily summary query: %w", err)
	}
	return rows, nil
}

// GetOverallDailyAverage projects each (day, source) aggregate to a full
// 24h day by covered time, then averages the projections across days.
// Normalizing before averaging keeps partially covered days from
// dragging the average down.
func (s *Store) GetOverallDailyAverage(ctx context.Context) ([]domain.DailyAverageRow, error) {
	var rows []domain.DailyAverageRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT
			logsource_id,
			MAX(logsource_name) as logsource_name,
			MAX(logsource_type) as logsource_type,
			COUNT(DISTINCT collection_date) as days_collected,

			ROUND(AVG(projected_daily_events), 2) as avg_daily_events,
			ROUND(AVG(projected_daily_bytes), 2) as avg_daily_bytes_total,
			ROUND(AVG(projected_daily_bytes) / (1024.0 * 1024.0), 4) as avg_daily_mb,
			ROUND(AVG(projected_daily_bytes) / (1024.0 * 1024.0 * 1024.0), 6) as avg_daily_gb,

			ROUND(AVG(projected_daily_aggregated_events), 2) as avg_daily_aggregated_events,
			ROUND(AVG(projected_daily_unparsed_events), 2) as avg_daily_unparsed_events,
			ROUND(AVG(coverage_pct), 2) as avg_coverage_pct,

			ROUND(AVG(avg_event_size_bytes), 2) as avg_event_size_bytes
		FROM (
			SELECT
				collection_date,
				logsource_id,
				MAX(logsource_name) as logsource_name,
				MAX(logsource_type) as logsource_type,
				SUM(total_event_count) as daily_events,
				SUM(aggregated_event_count) as daily_aggregated_events,
				SUM(unparsed_total_events) as daily_unparsed_events,
				SUM(total_payload_bytes) as daily_bytes,
				CASE
					WHEN SUM(total_event_count) > 0 THEN (SUM(total_payload_bytes) / SUM(total_event_count))
					ELSE 0
				END as avg_event_size_bytes,
				CASE WHEN SUM(window_seconds) > 0 THEN (SUM(window_seconds) / 86400.0) * 100.0 ELSE 0 END as coverage_pct,
				CASE WHEN SUM(window_seconds) > 0 THEN (SUM(total_event_count) * 86400.0 / SUM(window_seconds)) ELSE SUM(total_event_count) END as projected_daily_events,
				CASE WHEN SUM(window_seconds) > 0 THEN (SUM(aggregated_event_count) * 86400.0 / SUM(window_seconds)) ELSE SUM(aggregated_event_count) END as projected_daily_aggregated_events,
				CASE WHEN SUM(window_seconds) > 0 THEN (SUM(unparsed_total_events) * 86400.0 / SUM(window_seconds)) ELSE SUM(unparsed_total_events) END as projected_daily_unparsed_events,
				CASE WHEN SUM(window_seconds) > 0 THEN (SUM(total_payload_bytes) * 86400.0 / SUM(window_seconds)) ELSE SUM(total_payload_bytes) END as projected_daily_bytes
			FROM event_metrics
			GROUP BY collection_date, logsource_id
		) daily
		GROUP BY logsource_id
		ORDER BY avg_daily_bytes_total DESC`)
	if err != nil {
		return nil, fmt.Errorf("overall daily average query: %w", err)
	}
	return rows, nil
}

// GetCollectionDates returns the distinct dates runs happened on.
func (s *Store) GetCollectionDates(ctx context.Context) ([]string, error) {
	var dates []string
	err := s.db.SelectContext(ctx, &dates,
		"SELECT DISTINCT collection_date FROM collection_runs ORDER BY collection_date")
	if err != nil {
		return nil, fmt.Errorf("collection dates query: %w", err)
	}
	return dates, nil
}

// GetTotalRuns returns the number of recorded runs.
func (s *Store) GetTotalRuns(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM collection_runs")
	if err != nil {
		return 0, fmt.Errorf("total runs query: %w", err)
	}
	return total, nil
}
