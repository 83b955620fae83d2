package report_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lsardim1/siem-log-collectors/internal/domain"
	"github.com/lsardim1/siem-log-collectors/internal/report"
	"github.com/lsardim1/siem-log-collectors/internal/store"
)

// seedStore fills a fresh store with one hour of data for two sources.
func seedStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(filepath.Join(t.TempDir(), "metrics.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	runID, err := s.SaveCollectionRun(ctx, "2026-03-10T10:00:00Z", "2026-03-10", 1.0)
	require.NoError(t, err)

	window := store.RunWindow{
		RunID:          runID,
		CollectionTime: "2026-03-10T10:00:00Z",
		CollectionDate: "2026-03-10",
		WindowStartMS:  1_700_000_000_000,
		WindowEndMS:    1_700_003_600_000,
		WindowSeconds:  3600,
		IntervalHours:  1.0,
	}
	err = s.SaveEventMetrics(ctx, window, []domain.NormalizedMetric{
		{
			LogSourceID: 1, LogSourceName: "Firewall", LogSourceType: "Cisco ASA",
			AggregatedEventCount: 100, TotalEventCount: 4000,
			UnparsedAggregated: 1, UnparsedTotal: 40,
			TotalPayloadBytes: 2_000_000, AvgPayloadBytes: 500,
		},
		{
			LogSourceID: 2, LogSourceName: "Proxy", LogSourceType: "Squid",
			AggregatedEventCount: 50, TotalEventCount: 50,
			TotalPayloadBytes: 25_000, AvgPayloadBytes: 500,
		},
	})
	require.NoError(t, err)
	return s
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}), "CSV starts with a UTF-8 BOM")

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})))
	r.Comma = ';'
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func generatedFiles(t *testing.T, dir, pattern string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	require.NoError(t, err)
	return matches
}

func TestGenerateAllQRadarColumns(t *testing.T) {
	s := seedStore(t)
	dir := t.TempDir()

	cfg := report.BackendConfig("qradar")
	cfg.ReportDir = dir
	gen, err := report.New(s, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, gen.GenerateAll(context.Background()))

	daily := generatedFiles(t, dir, "qradar_daily_report_*.csv")
	require.Len(t, daily, 1)
	rows := readCSV(t, daily[0])
	require.GreaterOrEqual(t, len(rows), 3, "header plus a row per source")

	header := strings.Join(rows[0], ";")
	assert.Contains(t, header, "Log Source Type")
	assert.Contains(t, header, "Aggregated Events")
	assert.Contains(t, header, "Unparsed Events")
	assert.Contains(t, header, "Coverage (seconds)")

	summary := generatedFiles(t, dir, "qradar_summary_report_*.csv")
	require.Len(t, summary, 1)
	sumRows := readCSV(t, summary[0])
	assert.Contains(t, strings.Join(sumRows[0], ";"), "Days Collected")

	text := generatedFiles(t, dir, "qradar_full_report_*.txt")
	require.Len(t, text, 1)
}

func TestGenerateAllSplunkOmitsQRadarColumns(t *testing.T) {
	s := seedStore(t)
	dir := t.TempDir()

	cfg := report.BackendConfig("splunk")
	cfg.ReportDir = dir
	gen, err := report.New(s, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, gen.GenerateAll(context.Background()))

	daily := generatedFiles(t, dir, "splunk_daily_report_*.csv")
	require.Len(t, daily, 1)
	rows := readCSV(t, daily[0])

	header := strings.Join(rows[0], ";")
	assert.Contains(t, header, "Source [Index]")
	assert.Contains(t, header, "Sourcetype")
	assert.NotContains(t, header, "Aggregated Events")
	assert.NotContains(t, header, "Unparsed Events")
}

func TestTextReportContent(t *testing.T) {
	s := seedStore(t)
	dir := t.TempDir()

	cfg := report.BackendConfig("qradar")
	cfg.ReportDir = dir
	gen, err := report.New(s, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, gen.GenerateAll(context.Background()))

	files := generatedFiles(t, dir, "qradar_full_report_*.txt")
	require.Len(t, files, 1)
	raw, err := os.ReadFile(files[0])
	require.NoError(t, err)
	text := string(raw)

	assert.Contains(t, text, "IBM QRadar")
	assert.Contains(t, text, "2026-03-10")
	assert.Contains(t, text, "Firewall")
	assert.Contains(t, text, "MONTHLY VOLUME ESTIMATE")
	assert.Contains(t, text, "COLLECTION INFO")
}

func TestGenerateAllOnEmptyStore(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "metrics.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	dir := t.TempDir()

	cfg := report.BackendConfig("secops")
	cfg.ReportDir = dir
	gen, err := report.New(s, cfg, nil)
	require.NoError(t, err)
	assert.NoError(t, gen.GenerateAll(context.Background()),
		"no collected data is not an error, reports are just empty")
}
