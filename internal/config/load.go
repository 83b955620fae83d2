package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/lsardim1/siem-log-collectors/internal/collector"
)

// envBindings maps config keys to their environment variable aliases so
// secrets can stay out of config files.
var envBindings = map[string][]string{
	"qradar.url":                  {"QRADAR_URL"},
	"qradar.api_token":            {"QRADAR_API_TOKEN"},
	"splunk.url":                  {"SPLUNK_URL"},
	"splunk.auth_token":           {"SPLUNK_AUTH_TOKEN"},
	"splunk.username":             {"SPLUNK_USERNAME"},
	"splunk.password":             {"SPLUNK_PASSWORD"},
	"secops.service_account_file": {"SECOPS_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS"},
	"secops.auth_token":           {"SECOPS_AUTH_TOKEN"},
	"secops.region":               {"SECOPS_REGION"},
	"storage.db_file":             {"METRICS_DB_FILE"},
	"report.dir":                  {"REPORT_DIR"},
	"logger.level":                {"LOG_LEVEL"},
	"logger.log_file":             {"LOG_FILE"},
}

// Load reads configuration from the optional config file, environment
// variables and defaults, in ascending precedence of defaults < file <
// environment.
func Load(cfgFile string) (*Config, error) {
	// Load .env early so its variables are visible to Viper.
	_ = godotenv.Load()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, aliases := range envBindings {
		args := append([]string{key}, aliases...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// The config file is optional unless the operator named one.
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := New()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyLegacyKeys(v, cfg)
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "siem-log-collectors")
	v.SetDefault("app.environment", "production")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "console")
	v.SetDefault("collector.collection_days", collector.DefaultCollectionDays)
	v.SetDefault("collector.interval_hours", collector.DefaultIntervalHours)
	v.SetDefault("qradar.api_version", "26.0")
	v.SetDefault("secops.region", "us")
	v.SetDefault("secops.verify_ssl", true)
	v.SetDefault("report.dir", "reports")
}

// applyLegacyKeys accepts the flat JSON config layout earlier releases
// used ("qradar_url" at top level instead of qradar.url), so existing
// config files keep working.
func applyLegacyKeys(v *viper.Viper, cfg *Config) {
	legacy := map[string]func(string){
		"qradar_url":           func(s string) { cfg.QRadar.URL = s },
		"splunk_url":           func(s string) { cfg.Splunk.URL = s },
		"username":             func(s string) { cfg.Splunk.Username = s },
		"password":             func(s string) { cfg.Splunk.Password = s },
		"service_account_file": func(s string) { cfg.SecOps.ServiceAccountFile = s },
		"region":               func(s string) { cfg.SecOps.Region = s },
		"api_version":          func(s string) { cfg.QRadar.APIVersion = s },
		"db_file":              func(s string) { cfg.Storage.DBFile = s },
		"report_dir":           func(s string) { cfg.Report.Dir = s },
	}
	for key, set := range legacy {
		if v.IsSet(key) {
			if s := v.GetString(key); s != "" {
				set(s)
			}
		}
	}

	if v.IsSet("api_token") {
		// Shared by the QRadar and Splunk legacy layouts; both referred
		// to the backend the file was written for.
		token := v.GetString("api_token")
		if cfg.QRadar.APIToken == "" {
			cfg.QRadar.APIToken = token
		}
	}
	if v.IsSet("auth_token") {
		token := v.GetString("auth_token")
		if cfg.Splunk.Token == "" {
			cfg.Splunk.Token = token
		}
		if cfg.SecOps.Token == "" {
			cfg.SecOps.Token = token
		}
	}
	if v.IsSet("verify_ssl") {
		verify := v.GetBool("verify_ssl")
		cfg.QRadar.VerifySSL = verify
		cfg.Splunk.VerifySSL = verify
		cfg.SecOps.VerifySSL = verify
	}
	if v.IsSet("collection_days") {
		if days := v.GetFloat64("collection_days"); days > 0 {
			cfg.Collector.CollectionDays = days
		}
	}
	if v.IsSet("interval_hours") {
		if hours := v.GetFloat64("interval_hours"); hours > 0 {
			cfg.Collector.IntervalHours = hours
		}
	}
}
