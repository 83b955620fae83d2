// Package report implements the report command, which regenerates the
// report set from an existing metrics database without collecting.
package report

import (
	"github.com/spf13/cobra"

	"github.com/lsardim1/siem-log-collectors/cmd/common"
	"github.com/lsardim1/siem-log-collectors/internal/report"
	"github.com/lsardim1/siem-log-collectors/internal/store"
)

// Command returns the report command.
func Command() *cobra.Command {
	var dbFile, reportDir string

	cmd := &cobra.Command{
		Use:       "report [qradar|splunk|secops]",
		Short:     "Generate reports from an existing metrics database",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"qradar", "splunk", "secops"},
		RunE: func(cmd *cobra.Command, args []string) error {
			backend := args[0]

			cfg, err := common.LoadConfig()
			if err != nil {
				return err
			}
			if dbFile != "" {
				cfg.Storage.DBFile = dbFile
			}
			if reportDir != "" {
				cfg.Report.Dir = reportDir
			}

			log, err := common.NewLogger(cfg, backend)
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.DBFileFor(backend), log)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			reportCfg := report.BackendConfig(backend)
			reportCfg.ReportDir = cfg.Report.Dir
			gen, err := report.New(st, reportCfg, log)
			if err != nil {
				return err
			}
			return gen.GenerateAll(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&dbFile, "db-file", "", "SQLite database file (default: <backend>_metrics.db)")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "report output directory (default: reports)")
	return cmd
}
