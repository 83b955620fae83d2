package collect

import (
	"github.com/spf13/cobra"

	"github.com/lsardim1/siem-log-collectors/internal/collector"
	"github.com/lsardim1/siem-log-collectors/internal/config"
	"github.com/lsardim1/siem-log-collectors/internal/logger"
	"github.com/lsardim1/siem-log-collectors/internal/report"
	"github.com/lsardim1/siem-log-collectors/internal/siem"
	"github.com/lsardim1/siem-log-collectors/internal/siem/secops"
)

func secopsCommand() *cobra.Command {
	flags := &sessionFlags{}
	var serviceAccount, token, region string

	cmd := &cobra.Command{
		Use:   "secops",
		Short: "Collect from Google SecOps",
		Long: `Collect log ingestion metrics from Google SecOps (formerly Chronicle)
via UDM Search on the regional Backstory API.

Authentication uses a service account JSON file (recommended) or a
pre-generated Bearer token. Byte volumes are not available through UDM
Search; event counts are collected per log type and product.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSession(cmd, flags, session{
				backend:     "secops",
				displayName: "Google SecOps",
				reportCfg:   report.BackendConfig("secops"),
				applyFlags: func(cfg *config.Config) error {
					if serviceAccount != "" {
						cfg.SecOps.ServiceAccountFile = serviceAccount
					}
					if token != "" {
						cfg.SecOps.Token = token
					}
					if region != "" {
						cfg.SecOps.Region = region
					}
					return nil
				},
				newClient: func(cfg *config.Config, log logger.Interface) (siem.Client, error) {
					return secops.New(secops.Config{
						ServiceAccountFile: cfg.SecOps.ServiceAccountFile,
						Token:              cfg.SecOps.Token,
						Region:             cfg.SecOps.Region,
						VerifyTLS:          cfg.SecOps.VerifySSL,
					}, log)
				},
				// Log types observed in each window grow the inventory.
				postCollect: collector.InventoryFromMetrics,
			})
		},
	}

	cmd.Flags().StringVar(&serviceAccount, "service-account", "", "path to a service account JSON file")
	cmd.Flags().StringVar(&token, "token", "", "pre-generated Bearer token")
	cmd.Flags().StringVar(&region, "region", "", "SecOps region (default: us)")
	flags.register(cmd)
	return cmd
}
