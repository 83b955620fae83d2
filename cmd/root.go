// Package cmd implements the command-line interface for the SIEM log
// collectors. It provides the root command and subcommands for running
// collection sessions and generating reports.
package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lsardim1/siem-log-collectors/cmd/collect"
	"github.com/lsardim1/siem-log-collectors/cmd/common"
	cmdreport "github.com/lsardim1/siem-log-collectors/cmd/report"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	cfgFile string
	debug   bool

	rootCmd = &cobra.Command{
		Use:   "siem-collectors",
		Short: "SIEM log ingestion metrics collector",
		Long: `Collect log ingestion metrics from SIEM platforms (IBM QRadar, Splunk,
Google SecOps) over scheduled collection windows, store them in a local
SQLite database and produce daily and projected ingestion reports.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			common.SetConfigFile(cfgFile)
			common.SetDebug(debug)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available everywhere.
	_ = godotenv.Load()
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "siem-collectors version %s\n", version)
		},
	})

	rootCmd.AddCommand(collect.Command())
	rootCmd.AddCommand(cmdreport.Command())
}
