package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// sampleConfigs are starter files per backend, matching the legacy flat
// layout Load accepts.
var sampleConfigs = map[string]map[string]any{
	"qradar": {
		"qradar_url":      "https://qradar.example.com",
		"api_token":       "YOUR_API_TOKEN_HERE",
		"verify_ssl":      false,
		"api_version":     "26.0",
		"collection_days": 6,
		"interval_hours":  1,
		"db_file":         "qradar_metrics.db",
		"report_dir":      "reports",
	},
	"splunk": {
		"splunk_url":      "https://splunk.example.com:8089",
		"auth_token":      "YOUR_BEARER_TOKEN_HERE",
		"username":        "",
		"password":        "",
		"verify_ssl":      false,
		"collection_days": 6,
		"interval_hours":  1,
		"db_file":         "splunk_metrics.db",
		"report_dir":      "reports",
	},
	"secops": {
		"service_account_file": "/path/to/service-account.json",
		"auth_token":           "",
		"region":               "us",
		"verify_ssl":           true,
		"collection_days":      6,
		"interval_hours":       1,
		"db_file":              "secops_metrics.db",
		"report_dir":           "reports",
		"_comment_regions":     "Available regions: us, europe, southamerica-east1, asia-southeast1 and other Backstory regions.",
		"_comment_auth":        "Provide service_account_file OR auth_token. Service account is recommended for production.",
	},
}

// WriteSample writes a sample config file for the backend.
func WriteSample(backend, path string) error {
	sample, ok := sampleConfigs[backend]
	if !ok {
		return fmt.Errorf("no sample config for backend %q", backend)
	}
	data, err := json.MarshalIndent(sample, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal sample config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write sample config %s: %w", path, err)
	}
	return nil
}
