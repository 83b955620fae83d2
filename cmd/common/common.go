// Package common provides shared utilities for command implementations.
package common

import (
	"fmt"

	"github.com/lsardim1/siem-log-collectors/internal/config"
	"github.com/lsardim1/siem-log-collectors/internal/logger"
)

var (
	configFile string
	debug      bool
)

// SetConfigFile records the --config flag value for command use.
func SetConfigFile(path string) { configFile = path }

// ConfigFile returns the path given via --config, or "".
func ConfigFile() string { return configFile }

// SetDebug records the --debug flag value.
func SetDebug(enabled bool) { debug = enabled }

// Debug reports whether --debug was given.
func Debug() bool { return debug }

// LoadConfig loads the application configuration honoring the global
// flags.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if debug {
		cfg.Logger.Level = logger.DebugLevel
		cfg.Logger.Development = true
	}
	return cfg, nil
}

// NewLogger builds the logger for a backend command. Output always goes
// to stdout and to <backend>_collector.log unless the config names a
// different file.
func NewLogger(cfg *config.Config, backend string) (logger.Interface, error) {
	logCfg := cfg.Logger
	if logCfg.LogFile == "" {
		logCfg.LogFile = backend + "_collector.log"
	}
	log, err := logger.New(&logCfg)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	return log, nil
}
