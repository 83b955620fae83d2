// Package collect implements the collection commands. Each SIEM backend
// is a subcommand sharing the same session runner: open the store, test
// the connection, run the scheduled collection loop and generate the
// final reports.
package collect

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lsardim1/siem-log-collectors/cmd/common"
	"github.com/lsardim1/siem-log-collectors/internal/collector"
	"github.com/lsardim1/siem-log-collectors/internal/config"
	"github.com/lsardim1/siem-log-collectors/internal/logger"
	"github.com/lsardim1/siem-log-collectors/internal/report"
	"github.com/lsardim1/siem-log-collectors/internal/siem"
	"github.com/lsardim1/siem-log-collectors/internal/store"
)

// Command returns the collect command with one subcommand per backend.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect log ingestion metrics from a SIEM",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(qradarCommand(), splunkCommand(), secopsCommand())
	return cmd
}

// sessionFlags are the schedule and output flags every backend shares.
type sessionFlags struct {
	days          float64
	interval      float64
	dbFile        string
	reportDir     string
	reportOnly    bool
	createConfig  bool
	skipInventory bool
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.days, "days", 0,
		fmt.Sprintf("collection period in days (default: %g)", collector.DefaultCollectionDays))
	cmd.Flags().Float64Var(&f.interval, "interval", 0,
		fmt.Sprintf("interval between collections in hours (default: %g)", collector.DefaultIntervalHours))
	cmd.Flags().StringVar(&f.dbFile, "db-file", "", "SQLite database file (default: <backend>_metrics.db)")
	cmd.Flags().StringVar(&f.reportDir, "report-dir", "", "report output directory (default: reports)")
	cmd.Flags().BoolVar(&f.reportOnly, "report-only", false, "only generate reports from an existing database")
	cmd.Flags().BoolVar(&f.createConfig, "create-config", false, "write a sample config file and exit")
	cmd.Flags().BoolVar(&f.skipInventory, "skip-inventory", false, "skip the initial source inventory fetch")
}

// apply folds non-empty flag values over the loaded config.
func (f *sessionFlags) apply(cfg *config.Config) {
	if f.days > 0 {
		cfg.Collector.CollectionDays = f.days
	}
	if f.interval > 0 {
		cfg.Collector.IntervalHours = f.interval
	}
	if f.dbFile != "" {
		cfg.Storage.DBFile = f.dbFile
	}
	if f.reportDir != "" {
		cfg.Report.Dir = f.reportDir
	}
	if f.skipInventory {
		cfg.Collector.SkipInventory = true
	}
}

// session describes one backend's wiring into the shared runner.
type session struct {
	backend     string
	displayName string
	reportCfg   report.Config
	// applyFlags folds backend-specific flags over the config.
	applyFlags func(cfg *config.Config) error
	newClient  func(cfg *config.Config, log logger.Interface) (siem.Client, error)
	// postCollect, when set, runs after each successful cycle.
	postCollect collector.PostCollectFunc
}

func runSession(cmd *cobra.Command, flags *sessionFlags, s session) error {
	if flags.createConfig {
		path := common.ConfigFile()
		if path == "" {
			path = s.backend + "_config.json"
		}
		if err := config.WriteSample(s.backend, path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sample config written to %s\n", path)
		return nil
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		return err
	}
	flags.apply(cfg)
	if s.applyFlags != nil {
		if err := s.applyFlags(cfg); err != nil {
			return err
		}
	}

	log, err := common.NewLogger(cfg, s.backend)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DBFileFor(s.backend), log)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	reportCfg := s.reportCfg
	reportCfg.ReportDir = cfg.Report.Dir
	reporter, err := report.New(st, reportCfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.reportOnly {
		return reporter.GenerateAll(ctx)
	}

	if err := cfg.ValidateFor(s.backend); err != nil {
		return err
	}

	client, err := s.newClient(cfg, log)
	if err != nil {
		return err
	}
	if err := client.TestConnection(ctx); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}

	log.Info("starting log ingestion collector",
		"siem", s.displayName,
		"collection_days", cfg.Collector.CollectionDays,
		"interval_hours", cfg.Collector.IntervalHours,
		"db_file", cfg.DBFileFor(s.backend),
		"report_dir", cfg.Report.Dir)

	loop := collector.NewLoop(collector.Config{
		Client:         client,
		Store:          st,
		Reporter:       reporter,
		CollectionDays: cfg.Collector.CollectionDays,
		IntervalHours:  cfg.Collector.IntervalHours,
		DisplayName:    s.displayName,
		SkipInventory:  cfg.Collector.SkipInventory,
		PostCollect:    s.postCollect,
		Logger:         log,
	})
	return loop.Run(ctx)
}
