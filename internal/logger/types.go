// Package logger provides logging functionality for the application.
package logger

// Level represents the logging level.
type Level string

const (
	// DebugLevel logs debug messages.
	DebugLevel Level = "debug"
	// InfoLevel logs info messages.
	InfoLevel Level = "info"
	// WarnLevel logs warning messages.
	WarnLevel Level = "warn"
	// ErrorLevel logs error messages.
	ErrorLevel Level = "error"
	// FatalLevel logs fatal messages and exits.
	FatalLevel Level = "fatal"
)

// Config represents the logger configuration.
type Config struct {
	// Level is the minimum logging level.
	Level Level `json:"level" yaml:"level" mapstructure:"level"`
	// Development enables development mode (colors, caller info).
	Development bool `json:"development" yaml:"development" mapstructure:"development"`
	// Encoding sets the logger's encoding ("console" or "json").
	Encoding string `json:"encoding" yaml:"encoding" mapstructure:"encoding"`
	// LogFile, when set, duplicates output to the given file in
	// addition to stdout.
	LogFile string `json:"log_file" yaml:"log_file" mapstructure:"log_file"`
}
