package logger

import corelogger "github.com/kilianp07/battsim/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.NopLogger

// Options controls the output of loggers created by New.
type Options struct {
	// Level is a zerolog level name. Empty means info.
	Level string
	// Format is "json" or "console". Empty picks console when APP_ENV=dev.
	Format string
}

var defaults Options

// Configure sets the options applied to subsequently created loggers.
func Configure(o Options) error {
	if _, err := parseLevel(o.Level); err != nil {
		return err
	}
	defaults = o
	return nil
}

// New returns a Logger for the given component.
func New(component string) Logger {
	return NewZerologLogger(component)
}
