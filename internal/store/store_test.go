package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lsardim1/siem-log-collectors/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "metrics.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testWindow(runID int64, date string) RunWindow {
	return RunWindow{
		RunID:          runID,
		CollectionTime: date + "T10:00:00Z",
		CollectionDate: date,
		WindowStartMS:  1_700_000_000_000,
		WindowEndMS:    1_700_003_600_000,
		WindowSeconds:  3600,
		IntervalHours:  1.0,
	}
}

func TestOpenMigratesLegacyDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.db")

	// A database created before window bounds and the split counts
	// existed.
	old, err := sqlx.Open("sqlite", path)
	require.NoError(t, err)
	_, err = old.Exec(`CREATE TABLE event_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		collection_time TEXT NOT NULL,
		collection_date TEXT NOT NULL,
		logsource_id INTEGER,
		logsource_name TEXT,
		logsource_type TEXT,
		event_count INTEGER DEFAULT 0,
		total_payload_bytes REAL DEFAULT 0,
		avg_payload_bytes REAL DEFAULT 0,
		interval_hours REAL DEFAULT 1
	)`)
	require.NoError(t, err)
	_, err = old.Exec(`INSERT INTO event_metrics
		(run_id, collection_time, collection_date, logsource_id, logsource_name, logsource_type, event_count)
		VALUES (1, '2026-03-10T10:00:00Z', '2026-03-10', 42, 'Firewall', 'Cisco ASA', 100)`)
	require.NoError(t, err)
	require.NoError(t, old.Close())

	s, err := Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	// Old rows survive and the new columns accept writes.
	var count int64
	require.NoError(t, s.db.Get(&count, "SELECT COUNT(*) FROM event_metrics"))
	assert.Equal(t, int64(1), count)

	err = s.SaveEventMetrics(context.Background(), testWindow(2, "2026-03-11"), []domain.NormalizedMetric{
		{LogSourceID: 42, LogSourceName: "Firewall", LogSourceType: "Cisco ASA", AggregatedEventCount: 50},
	})
	assert.NoError(t, err)
}

func TestSaveCollectionRunAndStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, err := s.SaveCollectionRun(ctx, "2026-03-10T10:00:00Z", "2026-03-10", 1.0)
	require.NoError(t, err)
	assert.Positive(t, runID)

	var status string
	require.NoError(t, s.db.Get(&status, "SELECT status FROM collection_runs WHERE run_id = ?", runID))
	assert.Equal(t, domain.RunStatusSuccess, status)

	require.NoError(t, s.UpdateRunStatus(ctx, runID, domain.RunStatusFailed))
	require.NoError(t, s.db.Get(&status, "SELECT status FROM collection_runs WHERE run_id = ?", runID))
	assert.Equal(t, domain.RunStatusFailed, status)

	total, err := s.GetTotalRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestSaveEventMetricsDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, err := s.SaveCollectionRun(ctx, "2026-03-10T10:00:00Z", "2026-03-10", 1.0)
	require.NoError(t, err)

	err = s.SaveEventMetrics(ctx, testWindow(runID, "2026-03-10"), []domain.NormalizedMetric{
		// Name and type missing, total count left at zero.
		{LogSourceID: 7, AggregatedEventCount: 120},
	})
	require.NoError(t, err)

	rows, err := s.GetDailySummary(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Unknown", rows[0].LogSourceName)
	assert.Equal(t, "Unknown", rows[0].LogSourceType)
	assert.Equal(t, int64(120), rows[0].TotalEvents, "total falls back to the aggregated count")
	assert.Equal(t, int64(120), rows[0].AggregatedEvents)
}

func TestSaveInventoryUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveInventory(ctx, []domain.SourceInventoryEntry{
		{LogSourceID: 1, Name: "First", TypeName: "TypeA", Enabled: true},
	}))
	require.NoError(t, s.SaveInventory(ctx, []domain.SourceInventoryEntry{
		{LogSourceID: 1, Name: "Renamed", TypeName: "TypeA", Enabled: false},
	}))

	var rows []struct {
		Name    string `db:"name"`
		Enabled int    `db:"enabled"`
	}
	require.NoError(t, s.db.Select(&rows, "SELECT name, enabled FROM log_sources_inventory"))
	require.Len(t, rows, 1)
	assert.Equal(t, "Renamed", rows[0].Name)
	assert.Equal(t, 0, rows[0].Enabled)
}

func TestFillZeroEventRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveInventory(ctx, []domain.SourceInventoryEntry{
		{LogSourceID: 1, Name: "Active", TypeName: "TypeA", Enabled: true},
		{LogSourceID: 2, Name: "Silent", TypeName: "TypeB", Enabled: true},
		{LogSourceID: 3, Name: "Disabled", TypeName: "TypeC", Enabled: false},
	}))

	runID, err := s.SaveCollectionRun(ctx, "2026-03-10T10:00:00Z", "2026-03-10", 1.0)
	require.NoError(t, err)
	window := testWindow(runID, "2026-03-10")

	require.NoError(t, s.SaveEventMetrics(ctx, window, []domain.NormalizedMetric{
		{LogSourceID: 1, LogSourceName: "Active", LogSourceType: "TypeA", AggregatedEventCount: 500},
	}))

	filled, err := s.FillZeroEventRows(ctx, window, map[int64]struct{}{1: {}})
	require.NoError(t, err)
	assert.Equal(t, 1, filled, "only the silent enabled source gets a zero row")

	rows, err := s.GetDailySummary(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byID := make(map[int64]domain.DailySummaryRow, len(rows))
	for _, r := range rows {
		byID[r.LogSourceID] = r
	}
	assert.Equal(t, int64(500), byID[1].TotalEvents)
	assert.Equal(t, int64(0), byID[2].TotalEvents)
	assert.InDelta(t, 3600.0, byID[2].CoveredSeconds, 0.001,
		"an empty window still counts as covered time")
	assert.NotContains(t, byID, int64(3))
}

func TestOverallDailyAverageProjectsTo24Hours(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, err := s.SaveCollectionRun(ctx, "2026-03-10T10:00:00Z", "2026-03-10", 1.0)
	require.NoError(t, err)

	// One hour of coverage with 500 events and 1 MB of payload.
	err = s.SaveEventMetrics(ctx, testWindow(runID, "2026-03-10"), []domain.NormalizedMetric{
		{
			LogSourceID:          10,
			LogSourceName:        "Proxy",
			LogSourceType:        "Squid",
			AggregatedEventCount: 500,
			TotalEventCount:      500,
			TotalPayloadBytes:    1_048_576,
		},
	})
	require.NoError(t, err)

	rows, err := s.GetOverallDailyAverage(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, int64(10), row.LogSourceID)
	assert.Equal(t, int64(1), row.DaysCollected)
	assert.InDelta(t, 12000.0, row.AvgDailyEvents, 0.01, "500 events/h projects to 12000/day")
	assert.InDelta(t, 1_048_576*24.0, row.AvgDailyBytes, 0.01)
	assert.InDelta(t, 24.0, row.AvgDailyMB, 0.001)
	assert.InDelta(t, float64(3600)/86400*100, row.AvgCoveragePct, 0.01)
}

func TestOverallDailyAverageZeroCoverageIsNotScaled(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, err := s.SaveCollectionRun(ctx, "2026-03-10T10:00:00Z", "2026-03-10", 1.0)
	require.NoError(t, err)

	// A degenerate window with no covered time. The raw count is kept
	// as-is instead of being divided by zero seconds.
	window := testWindow(runID, "2026-03-10")
	window.WindowEndMS = window.WindowStartMS
	window.WindowSeconds = 0
	err = s.SaveEventMetrics(ctx, window, []domain.NormalizedMetric{
		{LogSourceID: 7, LogSourceName: "Syslog", LogSourceType: "Linux OS", AggregatedEventCount: 42, TotalEventCount: 42},
	})
	require.NoError(t, err)

	rows, err := s.GetOverallDailyAverage(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 42.0, rows[0].AvgDailyEvents, 0.001)
	assert.Zero(t, rows[0].AvgCoveragePct)
}

func TestOverallDailyAverageGroupsByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, day := range []string{"2026-03-10", "2026-03-11"} {
		runID, err := s.SaveCollectionRun(ctx, day+"T10:00:00Z", day, 1.0)
		require.NoError(t, err)
		name := "Firewall"
		if i == 1 {
			name = "Firewall Renamed"
		}
		err = s.SaveEventMetrics(ctx, testWindow(runID, day), []domain.NormalizedMetric{
			{LogSourceID: 5, LogSourceName: name, LogSourceType: "Cisco ASA", AggregatedEventCount: 100},
		})
		require.NoError(t, err)
	}

	rows, err := s.GetOverallDailyAverage(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1, "a renamed source stays one source")
	assert.Equal(t, int64(2), rows[0].DaysCollected)

	dates, err := s.GetCollectionDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-03-10", "2026-03-11"}, dates)
}
