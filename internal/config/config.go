// Package config provides configuration management for the collectors.
// It handles loading, validation, and access to configuration values from
// config files, environment variables and flags via Viper.
package config

import (
	"errors"
	"fmt"

	"github.com/lsardim1/siem-log-collectors/internal/collector"
	"github.com/lsardim1/siem-log-collectors/internal/logger"
)

// AppConfig holds application-wide settings.
type AppConfig struct {
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	Environment string `json:"environment" yaml:"environment" mapstructure:"environment"`
}

// CollectorConfig controls the collection schedule.
type CollectorConfig struct {
	// CollectionDays is the total session length in days. Fractions work:
	// 0.5 runs for 12 hours.
	CollectionDays float64 `json:"collection_days" yaml:"collection_days" mapstructure:"collection_days"`
	// IntervalHours is the spacing between windows. Fractions work: 0.25
	// collects 15 minute windows.
	IntervalHours float64 `json:"interval_hours" yaml:"interval_hours" mapstructure:"interval_hours"`
	SkipInventory bool    `json:"skip_inventory" yaml:"skip_inventory" mapstructure:"skip_inventory"`
}

// QRadarConfig holds IBM QRadar connection settings.
type QRadarConfig struct {
	URL        string `json:"qradar_url" yaml:"url" mapstructure:"url"`
	APIToken   string `json:"api_token" yaml:"api_token" mapstructure:"api_token"`
	APIVersion string `json:"api_version" yaml:"api_version" mapstructure:"api_version"`
	VerifySSL  bool   `json:"verify_ssl" yaml:"verify_ssl" mapstructure:"verify_ssl"`
}

// SplunkConfig holds Splunk connection settings. Token (Bearer) is
// preferred; Username and Password are the Basic auth fallback.
type SplunkConfig struct {
	URL       string `json:"splunk_url" yaml:"url" mapstructure:"url"`
	Token     string `json:"auth_token" yaml:"auth_token" mapstructure:"auth_token"`
	Username  string `json:"username" yaml:"username" mapstructure:"username"`
	Password  string `json:"password" yaml:"password" mapstructure:"password"`
	VerifySSL bool   `json:"verify_ssl" yaml:"verify_ssl" mapstructure:"verify_ssl"`
}

// SecOpsConfig holds Google SecOps connection settings. A service
// account file is preferred; Token is for pre-generated bearer tokens.
type SecOpsConfig struct {
	ServiceAccountFile string `json:"service_account_file" yaml:"service_account_file" mapstructure:"service_account_file"`
	Token              string `json:"auth_token" yaml:"auth_token" mapstructure:"auth_token"`
	Region             string `json:"region" yaml:"region" mapstructure:"region"`
	VerifySSL          bool   `json:"verify_ssl" yaml:"verify_ssl" mapstructure:"verify_ssl"`
}

// StorageConfig holds SQLite settings.
type StorageConfig struct {
	// DBFile defaults to "<backend>_metrics.db" when empty.
	DBFile string `json:"db_file" yaml:"db_file" mapstructure:"db_file"`
}

// ReportConfig holds report output settings.
type ReportConfig struct {
	Dir string `json:"report_dir" yaml:"dir" mapstructure:"dir"`
}

// Config is the root application configuration.
type Config struct {
	App       AppConfig       `json:"app" yaml:"app" mapstructure:"app"`
	Logger    logger.Config   `json:"logger" yaml:"logger" mapstructure:"logger"`
	Collector CollectorConfig `json:"collector" yaml:"collector" mapstructure:"collector"`
	QRadar    QRadarConfig    `json:"qradar" yaml:"qradar" mapstructure:"qradar"`
	Splunk    SplunkConfig    `json:"splunk" yaml:"splunk" mapstructure:"splunk"`
	SecOps    SecOpsConfig    `json:"secops" yaml:"secops" mapstructure:"secops"`
	Storage   StorageConfig   `json:"storage" yaml:"storage" mapstructure:"storage"`
	Report    ReportConfig    `json:"report" yaml:"report" mapstructure:"report"`
}

// New returns a Config with defaults applied.
func New() *Config {
	return &Config{
		App: AppConfig{
			Name:        "siem-log-collectors",
			Environment: "production",
		},
		Logger: logger.Config{
			Level:    logger.InfoLevel,
			Encoding: "console",
		},
		Collector: CollectorConfig{
			CollectionDays: collector.DefaultCollectionDays,
			IntervalHours:  collector.DefaultIntervalHours,
		},
		QRadar: QRadarConfig{
			APIVersion: "26.0",
		},
		SecOps: SecOpsConfig{
			Region:    "us",
			VerifySSL: true,
		},
		Report: ReportConfig{
			Dir: "reports",
		},
	}
}

// DBFileFor resolves the database path for a backend.
func (c *Config) DBFileFor(backend string) string {
	if c.Storage.DBFile != "" {
		return c.Storage.DBFile
	}
	return backend + "_metrics.db"
}

// ValidateCollector checks the schedule settings.
func (c *Config) ValidateCollector() error {
	if c.Collector.CollectionDays <= 0 {
		return errors.New("collector: collection_days must be positive")
	}
	if c.Collector.IntervalHours <= 0 {
		return errors.New("collector: interval_hours must be positive")
	}
	if c.Collector.IntervalHours > c.Collector.CollectionDays*24 {
		return errors.New("collector: interval_hours exceeds the collection period")
	}
	return nil
}

// ValidateQRadar checks the settings the QRadar backend needs.
func (c *Config) ValidateQRadar() error {
	if c.QRadar.URL == "" {
		return errors.New("qradar: url is required")
	}
	if c.QRadar.APIToken == "" {
		return errors.New("qradar: api_token is required")
	}
	return c.ValidateCollector()
}

// ValidateSplunk checks the settings the Splunk backend needs.
func (c *Config) ValidateSplunk() error {
	if c.Splunk.URL == "" {
		return errors.New("splunk: url is required")
	}
	if c.Splunk.Token == "" && (c.Splunk.Username == "" || c.Splunk.Password == "") {
		return errors.New("splunk: auth_token or username and password are required")
	}
	return c.ValidateCollector()
}

// ValidateSecOps checks the settings the Google SecOps backend needs.
func (c *Config) ValidateSecOps() error {
	if c.SecOps.ServiceAccountFile == "" && c.SecOps.Token == "" {
		return errors.New("secops: service_account_file or auth_token is required")
	}
	return c.ValidateCollector()
}

// ValidateFor dispatches validation by backend name.
func (c *Config) ValidateFor(backend string) error {
	switch backend {
	case "qradar":
		return c.ValidateQRadar()
	case "splunk":
		return c.ValidateSplunk()
	case "secops":
		return c.ValidateSecOps()
	default:
		return fmt.Errorf("unknown backend %q", backend)
	}
}
