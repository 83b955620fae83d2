// Package domain provides domain models used across the application.
package domain

// Run status values for a collection run.
const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// CollectionRun represents one scheduling tick of the collection engine.
// A run is created before the backend is queried so failed windows remain
// visible in history; only its status is ever mutated afterwards.
type CollectionRun struct {
	RunID          int64   `db:"run_id" json:"run_id"`
	CollectionTime string  `db:"collection_time" json:"collection_time"`
	CollectionDate string  `db:"collection_date" json:"collection_date"`
	IntervalHours  float64 `db:"interval_hours" json:"interval_hours"`
	Status         string  `db:"status" json:"status"`
}

// EventMetric is one (run, source) observation for an exact collection
// window. Rows are append-only: written once at cycle persistence time and
// never mutated or deleted.
type EventMetric struct {
	ID                       int64   `db:"id" json:"id"`
	RunID                    int64   `db:"run_id" json:"run_id"`
	CollectionTime           string  `db:"collection_time" json:"collection_time"`
	CollectionDate           string  `db:"collection_date" json:"collection_date"`
	WindowStartMS            int64   `db:"window_start_ms" json:"window_start_ms"`
	WindowEndMS              int64   `db:"window_end_ms" json:"window_end_ms"`
	WindowSeconds            float64 `db:"window_seconds" json:"window_seconds"`
	LogSourceID              int64   `db:"logsource_id" json:"logsource_id"`
	LogSourceName            string  `db:"logsource_name" json:"logsource_name"`
	LogSourceType            string  `db:"logsource_type" json:"logsource_type"`
	EventCount               int64   `db:"event_count" json:"event_count"`
	AggregatedEventCount     int64   `db:"aggregated_event_count" json:"aggregated_event_count"`
	TotalEventCount          int64   `db:"total_event_count" json:"total_event_count"`
	UnparsedAggregatedEvents int64   `db:"unparsed_aggregated_events" json:"unparsed_aggregated_events"`
	UnparsedTotalEvents      int64   `db:"unparsed_total_events" json:"unparsed_total_events"`
	TotalPayloadBytes        float64 `db:"total_payload_bytes" json:"total_payload_bytes"`
	AvgPayloadBytes          float64 `db:"avg_payload_bytes" json:"avg_payload_bytes"`
	IntervalHours            float64 `db:"interval_hours" json:"interval_hours"`
}

// SourceInventoryEntry is the canonical catalog record for a known log
// source. Entries are upserted by LogSourceID whenever a backend discovers
// or refreshes source metadata. Disabled entries are excluded from
// zero-fill so they never appear as phantom zero-volume sources.
type SourceInventoryEntry struct {
	LogSourceID int64  `db:"logsource_id" json:"logsource_id"`
	Name        string `db:"name" json:"name"`
	TypeName    string `db:"type_name" json:"type_name"`
	TypeID      int64  `db:"type_id" json:"type_id"`
	Enabled     bool   `db:"enabled" json:"enabled"`
	Description string `db:"description" json:"description"`
	LastUpdated string `db:"last_updated" json:"last_updated"`
}

// NormalizedMetric is the uniform per-source sample returned by every SIEM
// backend client for an exact collection window.
type NormalizedMetric struct {
	LogSourceID          int64   `json:"logsourceid"`
	LogSourceName        string  `json:"log_source_name"`
	LogSourceType        string  `json:"log_source_type"`
	AggregatedEventCount int64   `json:"aggregated_event_count"`
	TotalEventCount      int64   `json:"total_event_count"`
	UnparsedAggregated   int64   `json:"unparsed_aggregated_events"`
	UnparsedTotal        int64   `json:"unparsed_total_events"`
	TotalPayloadBytes    float64 `json:"total_payload_bytes"`
	AvgPayloadBytes      float64 `json:"avg_payload_bytes"`
}

// DailySummaryRow is one (collection_date, source) aggregate from the
// store's daily summary query. CoveredSeconds includes zero-filled rows,
// which is what makes the 24h projections in DailyAverageRow correct.
type DailySummaryRow struct {
	CollectionDate     string  `db:"collection_date" json:"collection_date"`
	LogSourceID        int64   `db:"logsource_id" json:"logsource_id"`
	LogSourceName      string  `db:"logsource_name" json:"logsource_name"`
	LogSourceType      string  `db:"logsource_type" json:"logsource_type"`
	TotalEvents        int64   `db:"total_events" json:"total_events"`
	AggregatedEvents   int64   `db:"aggregated_events" json:"aggregated_events"`
	UnparsedTotal      int64   `db:"unparsed_total_events" json:"unparsed_total_events"`
	UnparsedAggregated int64   `db:"unparsed_aggregated_events" json:"unparsed_aggregated_events"`
	TotalBytes         float64 `db:"total_bytes" json:"total_bytes"`
	AvgEventSizeBytes  float64 `db:"avg_event_size_bytes" json:"avg_event_size_bytes"`
	CollectionCount    int64   `db:"collection_count" json:"collection_count"`
	CoveredSeconds     float64 `db:"covered_seconds" json:"covered_seconds"`
}

// DailyAverageRow is the overall per-source projection: per-day aggregates
// normalized to a full 24h day by covered time, then averaged across all
// collected days.
type DailyAverageRow struct {
	LogSourceID            int64   `db:"logsource_id" json:"logsource_id"`
	LogSourceName          string  `db:"logsource_name" json:"logsource_name"`
	LogSourceType          string  `db:"logsource_type" json:"logsource_type"`
	DaysCollected          int64   `db:"days_collected" json:"days_collected"`
	AvgDailyEvents         float64 `db:"avg_daily_events" json:"avg_daily_events"`
	AvgDailyBytes          float64 `db:"avg_daily_bytes_total" json:"avg_daily_bytes_total"`
	AvgDailyMB             float64 `db:"avg_daily_mb" json:"avg_daily_mb"`
	AvgDailyGB             float64 `db:"avg_daily_gb" json:"avg_daily_gb"`
	AvgDailyAggregated     float64 `db:"avg_daily_aggregated_events" json:"avg_daily_aggregated_events"`
	AvgDailyUnparsedEvents float64 `db:"avg_daily_unparsed_events" json:"avg_daily_unparsed_events"`
	AvgCoveragePct         float64 `db:"avg_coverage_pct" json:"avg_coverage_pct"`
	AvgEventSizeBytes      float64 `db:"avg_event_size_bytes" json:"avg_event_size_bytes"`
}
