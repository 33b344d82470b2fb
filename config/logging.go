package config

import (
	"fmt"

	"github.com/kilianp07/battsim/infra/logger"
)

// LoggingConfig defines the log output.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `json:"level"`
	// Format is "json" or "console". Empty picks console when APP_ENV=dev.
	Format string `json:"format"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks the level and format names.
func (c LoggingConfig) Validate() error {
	switch c.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", c.Level)
	}
	switch c.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging: unknown format %q", c.Format)
	}
	return nil
}

// Options converts the section for logger.Configure.
func (c LoggingConfig) Options() logger.Options {
	return logger.Options{Level: c.Level, Format: c.Format}
}
