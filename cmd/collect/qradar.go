package collect

import (
	"github.com/spf13/cobra"

	"github.com/lsardim1/siem-log-collectors/internal/config"
	"github.com/lsardim1/siem-log-collectors/internal/logger"
	"github.com/lsardim1/siem-log-collectors/internal/report"
	"github.com/lsardim1/siem-log-collectors/internal/siem"
	"github.com/lsardim1/siem-log-collectors/internal/siem/qradar"
)

func qradarCommand() *cobra.Command {
	flags := &sessionFlags{}
	var url, token string

	cmd := &cobra.Command{
		Use:   "qradar",
		Short: "Collect from IBM QRadar",
		Long: `Collect log ingestion metrics from IBM QRadar via the Ariel AQL API.

Authentication uses an API token sent in the SEC header.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSession(cmd, flags, session{
				backend:     "qradar",
				displayName: "IBM QRadar",
				reportCfg:   report.BackendConfig("qradar"),
				applyFlags: func(cfg *config.Config) error {
					if url != "" {
						cfg.QRadar.URL = url
					}
					if token != "" {
						cfg.QRadar.APIToken = token
					}
					return nil
				},
				newClient: func(cfg *config.Config, log logger.Interface) (siem.Client, error) {
					return qradar.New(qradar.Config{
						BaseURL:    cfg.QRadar.URL,
						APIToken:   cfg.QRadar.APIToken,
						APIVersion: cfg.QRadar.APIVersion,
						VerifyTLS:  cfg.QRadar.VerifySSL,
					}, log), nil
				},
			})
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "QRadar base URL (e.g. https://qradar:443)")
	cmd.Flags().StringVar(&token, "token", "", "API token (SEC header)")
	flags.register(cmd)
	return cmd
}
