// Package report renders the end-of-session CSV and text reports from
// stored metrics. Report shape is the same for every SIEM; labels and
// optional columns are parameterized per backend.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lsardim1/siem-log-collectors/internal/logger"
	"github.com/lsardim1/siem-log-collectors/internal/store"
)

// Config parameterizes report generation for one backend.
type Config struct {
	// SIEMName is the short name used in file names ("qradar").
	SIEMName string
	// DisplayName is the long name used in headings ("IBM QRadar").
	DisplayName string
	// SourceLabel and TypeLabel are the column headings for a source and
	// its type ("Log Source" / "Type", "Index" / "Sourcetype").
	SourceLabel string
	TypeLabel   string
	// IncludeAggregated adds the coalesced-record columns (QRadar).
	IncludeAggregated bool
	// IncludeUnparsed adds the unparsed-event columns (QRadar).
	IncludeUnparsed bool
	ReportDir       string
}

// Generator writes the report set into the configured directory.
type Generator struct {
	store  *store.Store
	config Config
	log    logger.Interface
}

// New builds a Generator and ensures the report directory exists.
func New(st *store.Store, config Config, log logger.Interface) (*Generator, error) {
	if config.SIEMName == "" {
		config.SIEMName = "siem"
	}
	if config.DisplayName == "" {
		config.DisplayName = "SIEM"
	}
	if config.SourceLabel == "" {
		config.SourceLabel = "Log Source"
	}
	if config.TypeLabel == "" {
		config.TypeLabel = "Type"
	}
	if config.ReportDir == "" {
		config.ReportDir = "reports"
	}
	if log == nil {
		log = logger.NewNoOp()
	}
	if err := os.MkdirAll(config.ReportDir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir %s: %w", config.ReportDir, err)
	}
	return &Generator{store: st, config: config, log: log.WithComponent("report")}, nil
}

// GenerateAll writes the daily CSV, the summary CSV and the full text
// report, all stamped with the same timestamp.
func (g *Generator) GenerateAll(ctx context.Context) error {
	timestamp := time.Now().Format("20060102_150405")
	g.log.Info("generating final reports", "dir", g.config.ReportDir)

	if err := g.generateDailyCSV(ctx, timestamp); err != nil {
		return err
	}
	if err := g.generateSummaryCSV(ctx, timestamp); err != nil {
		return err
	}
	if err := g.generateTextReport(ctx, timestamp); err != nil {
		return err
	}

	abs, err := filepath.Abs(g.config.ReportDir)
	if err != nil {
		abs = g.config.ReportDir
	}
	g.log.Info("reports saved", "dir", abs)
	return nil
}

func (g *Generator) reportPath(kind, timestamp, ext string) string {
	name := fmt.Sprintf("%s_%s_%s.%s", g.config.SIEMName, kind, timestamp, ext)
	return filepath.Join(g.config.ReportDir, name)
}

// formatBytes renders a byte count in the largest unit below 1024.
func formatBytes(v float64) string {
	if v == 0 {
		return "0 B"
	}
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if v < 1024.0 && v > -1024.0 {
			return fmt.Sprintf("%.2f %s", v, unit)
		}
		v /= 1024.0
	}
	return fmt.Sprintf("%.2f PB", v)
}
