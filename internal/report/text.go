package report

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

const headingRule = 100

// generateTextReport writes the full human-readable report: collection
// info, per-day breakdowns, the overall summary and a monthly estimate.
func (g *Generator) generateTextReport(ctx context.Context, timestamp string) error {
	path := g.reportPath("full_report", timestamp, "txt")

	dates, err := g.store.GetCollectionDates(ctx)
	if err != nil {
		return err
	}
	daily, err := g.store.GetDailySummary(ctx)
	if err != nil {
		return err
	}
	summary, err := g.store.GetOverallDailyAverage(ctx)
	if err != nil {
		return err
	}
	totalRuns, err := g.store.GetTotalRuns(ctx)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var b strings.Builder
	rule := strings.Repeat("=", headingRule)
	thinRule := strings.Repeat("-", headingRule)

	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "  LOG INGESTION REPORT - %s\n", g.config.DisplayName)
	fmt.Fprintf(&b, "  Generated at: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "%s\n\n", rule)

	fmt.Fprintf(&b, "%s\n  COLLECTION INFO\n%s\n", thinRule, thinRule)
	firstDate, lastDate := "N/A", "N/A"
	if len(dates) > 0 {
		firstDate, lastDate = dates[0], dates[len(dates)-1]
	}
	fmt.Fprintf(&b, "  Collection period: %s to %s\n", firstDate, lastDate)
	fmt.Fprintf(&b, "  Days collected: %d\n", len(dates))
	fmt.Fprintf(&b, "  Collection runs: %d\n", totalRuns)
	fmt.Fprintf(&b, "  Data sources identified: %d\n\n", len(summary))

	fmt.Fprintf(&b, "%s\n  DAILY BREAKDOWN BY DATA SOURCE\n%s\n\n", rule, rule)
	for _, date := range dates {
		var dayEvents int64
		var dayBytes float64
		t := table.NewWriter()
		t.SetTitle("DATE: %s", date)
		t.AppendHeader(table.Row{g.config.SourceLabel, g.config.TypeLabel,
			"Events", "Total Volume", "Avg/Event"})

		for _, row := range daily {
			if row.CollectionDate != date {
				continue
			}
			dayEvents += row.TotalEvents
			dayBytes += row.TotalBytes
			t.AppendRow(table.Row{
				clip(row.LogSourceName, 35),
				clip(row.LogSourceType, 20),
				row.TotalEvents,
				formatBytes(row.TotalBytes),
				formatBytes(row.AvgEventSizeBytes),
			})
		}
		t.AppendFooter(table.Row{"Day total", "", dayEvents, formatBytes(dayBytes), ""})
		b.WriteString(t.Render())
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "%s\n  SUMMARY - AVERAGE DAILY INGESTION BY DATA SOURCE\n%s\n\n", rule, rule)
	var grandAvgEvents, grandAvgBytes float64
	st := table.NewWriter()
	st.AppendHeader(table.Row{g.config.SourceLabel, g.config.TypeLabel,
		"Days", "Avg Events/Day", "Avg Volume/Day", "Avg/Event"})
	for _, s := range summary {
		grandAvgEvents += s.AvgDailyEvents
		grandAvgBytes += s.AvgDailyBytes
		st.AppendRow(table.Row{
			clip(s.LogSourceName, 30),
			clip(s.LogSourceType, 18),
			s.DaysCollected,
			fmt.Sprintf("%.0f", s.AvgDailyEvents),
			formatBytes(s.AvgDailyBytes),
			formatBytes(s.AvgEventSizeBytes),
		})
	}
	st.AppendFooter(table.Row{"TOTAL (sum of averages)", "", "",
		fmt.Sprintf("%.0f", grandAvgEvents), formatBytes(grandAvgBytes), ""})
	b.WriteString(st.Render())
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%s\n  MONTHLY VOLUME ESTIMATE (based on daily averages)\n%s\n\n", thinRule, thinRule)
	for _, s := range summary {
		fmt.Fprintf(&b, "  %-40s  Daily: %12s  |  Monthly (30d): %12s\n",
			clip(s.LogSourceName, 40),
			formatBytes(s.AvgDailyBytes),
			formatBytes(s.AvgDailyBytes*30))
	}
	fmt.Fprintf(&b, "\n  %-40s  Daily: %12s  |  Monthly (30d): %12s\n",
		"ESTIMATED TOTAL", formatBytes(grandAvgBytes), formatBytes(grandAvgBytes*30))

	fmt.Fprintf(&b, "\n%s\n  NOTES\n%s\n", thinRule, thinRule)
	g.writeNotes(&b)
	fmt.Fprintf(&b, "\n%s\n  END OF REPORT\n%s\n", rule, rule)

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	g.log.Info("full text report written", "path", path)
	return nil
}

// writeNotes appends the caveats that apply to the backend's byte
// accounting.
func (g *Generator) writeNotes(b *strings.Builder) {
	switch g.config.SIEMName {
	case "qradar":
		b.WriteString("  - Byte volumes refer to the payload stored in Ariel. They can differ from\n")
		b.WriteString("    raw on-wire logs due to coalescing, truncation and storage settings.\n")
	case "splunk":
		b.WriteString("  - Byte volumes are computed via sum(len(_raw)), the raw (uncompressed) event\n")
		b.WriteString("    size in the index. For licensed bytes query the license usage log.\n")
	case "secops":
		b.WriteString("  - Byte volumes are NOT available through Google SecOps UDM Search.\n")
		b.WriteString("    All byte columns are zero. Use the SecOps console for volume figures.\n")
	default:
		b.WriteString("  - Byte volumes refer to the payload stored in the SIEM. They can differ from\n")
		b.WriteString("    raw on-wire logs due to coalescing, truncation and storage settings.\n")
	}
	if g.config.IncludeAggregated {
		b.WriteString("  - Coalescing Ratio (Total Events / COUNT(*)) shows how many raw events each\n")
		b.WriteString("    stored record represents. Values above 1 mean coalescing is active.\n")
	}
	b.WriteString("  - 24h projections are normalized by the time actually covered (zero-fill).\n")
	b.WriteString("  - Zero-fill only applies to sources enabled in the inventory.\n")
}

func clip(s string, max int) string {
	if s == "" {
		return "Unknown"
	}
	if len(s) > max {
		return s[:max]
	}
	return s
}
