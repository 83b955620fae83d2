package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
)

// utf8BOM keeps spreadsheet tools from mangling accented source names.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// newCSVFile opens a report CSV with a UTF-8 BOM and ';' delimiter, the
// combination spreadsheet imports handle with no dialog.
func newCSVFile(path string) (*os.File, *csv.Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create report %s: %w", path, err)
	}
	if _, err := f.Write(utf8BOM); err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("write BOM to %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	w.Comma = ';'
	return f, w, nil
}

// generateDailyCSV writes one row per (day, source) with coverage and
// volume breakdowns.
func (g *Generator) generateDailyCSV(ctx context.Context, timestamp string) error {
	path := g.reportPath("daily_report", timestamp, "csv")
	daily, err := g.store.GetDailySummary(ctx)
	if err != nil {
		return err
	}

	f, w, err := newCSVFile(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	headers := []string{"Date", "Source ID", g.config.SourceLabel, g.config.TypeLabel, "Total Events"}
	if g.config.IncludeAggregated {
		headers = append(headers, "Aggregated Events (COUNT(*))", "Coalescing Ratio")
	}
	if g.config.IncludeUnparsed {
		headers = append(headers, "Unparsed Events (SUM)", "Unparsed % (of total)")
	}
	headers = append(headers,
		"Coverage (seconds)", "Coverage % (of day)",
		"Total Payload (Bytes)", "Total Payload (MB)", "Total Payload (GB)",
		"Avg Event Size (Bytes)", "Collections in Day")
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("write daily header: %w", err)
	}

	for _, row := range daily {
		values := []string{
			row.CollectionDate,
			fmt.Sprintf("%d", row.LogSourceID),
			row.LogSourceName,
			row.LogSourceType,
			fmt.Sprintf("%d", row.TotalEvents),
		}
		if g.config.IncludeAggregated {
			values = append(values, fmt.Sprintf("%d", row.AggregatedEvents))
			// How many raw events each stored record represents.
			if row.AggregatedEvents > 0 {
				values = append(values, fmt.Sprintf("%.2f",
					float64(row.TotalEvents)/float64(row.AggregatedEvents)))
			} else {
				values = append(values, "N/A")
			}
		}
		if g.config.IncludeUnparsed {
			values = append(values, fmt.Sprintf("%d", row.UnparsedTotal))
			total := row.TotalEvents
			if total == 0 {
				total = 1
			}
			values = append(values, fmt.Sprintf("%.2f",
				float64(row.UnparsedTotal)/float64(total)*100.0))
		}
		values = append(values,
			fmt.Sprintf("%g", row.CoveredSeconds),
			fmt.Sprintf("%.2f", row.CoveredSeconds/86400.0*100.0),
			fmt.Sprintf("%.0f", row.TotalBytes),
			fmt.Sprintf("%.4f", row.TotalBytes/(1024*1024)),
			fmt.Sprintf("%.6f", row.TotalBytes/(1024*1024*1024)),
			fmt.Sprintf("%.2f", row.AvgEventSizeBytes),
			fmt.Sprintf("%d", row.CollectionCount))
		if err := w.Write(values); err != nil {
			return fmt.Errorf("write daily row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush daily report: %w", err)
	}
	g.log.Info("daily CSV report written", "path", path)
	return nil
}

// generateSummaryCSV writes the per-source overall daily averages,
// projected to 24h by covered time.
func (g *Generator) generateSummaryCSV(ctx context.Context, timestamp string) error {
	path := g.reportPath("summary_report", timestamp, "csv")
	summary, err := g.store.GetOverallDailyAverage(ctx)
	if err != nil {
		return err
	}

	f, w, err := newCSVFile(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	headers := []string{"Source ID", g.config.SourceLabel, g.config.TypeLabel,
		"Days Collected", "Avg Daily Events (projected 24h)"}
	if g.config.IncludeAggregated {
		headers = append(headers,
			"Avg Daily Aggregated Events (projected 24h)", "Avg Coalescing Ratio")
	}
	if g.config.IncludeUnparsed {
		headers = append(headers, "Avg Daily Unparsed Events (projected 24h)")
	}
	headers = append(headers,
		"Avg Coverage % (of day)",
		"Avg Daily Volume (Bytes) (projected 24h)",
		"Avg Daily Volume (MB)", "Avg Daily Volume (GB)",
		"Avg Event Size (Bytes)")
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}

	for _, row := range summary {
		values := []string{
			fmt.Sprintf("%d", row.LogSourceID),
			row.LogSourceName,
			row.LogSourceType,
			fmt.Sprintf("%d", row.DaysCollected),
			fmt.Sprintf("%.0f", row.AvgDailyEvents),
		}
		if g.config.IncludeAggregated {
			values = append(values, fmt.Sprintf("%.0f", row.AvgDailyAggregated))
			if row.AvgDailyAggregated > 0 {
				values = append(values, fmt.Sprintf("%.2f",
					row.AvgDailyEvents/row.AvgDailyAggregated))
			} else {
				values = append(values, "N/A")
			}
		}
		if g.config.IncludeUnparsed {
			values = append(values, fmt.Sprintf("%.0f", row.AvgDailyUnparsedEvents))
		}
		values = append(values,
			fmt.Sprintf("%.2f", row.AvgCoveragePct),
			fmt.Sprintf("%.0f", row.AvgDailyBytes),
			fmt.Sprintf("%.4f", row.AvgDailyMB),
			fmt.Sprintf("%.6f", row.AvgDailyGB),
			fmt.Sprintf("%.2f", row.AvgEventSizeBytes))
		if err := w.Write(values); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush summary report: %w", err)
	}
	g.log.Info("summary CSV report written", "path", path)
	return nil
}
