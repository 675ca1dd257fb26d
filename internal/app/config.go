package app

import (
	"io"
	"time"

	"github.com/giantswarm/conductor/internal/config"
	"github.com/giantswarm/conductor/internal/formatting"
)

// Config holds the application configuration
type Config struct {
	// Debug forces debug logging regardless of the configured level.
	Debug bool

	// Path to the configuration file. Empty means conductor.yaml in the
	// working directory, falling back to defaults.
	ConfigPath string

	// Hold keeps the container running after it settles until the process
	// is signalled or the context ends.
	Hold bool

	// Watch logs every lifecycle event at info level.
	Watch bool

	// Reload re-applies the configuration file whenever it changes while
	// holding.
	Reload bool

	// MetricsAddr overrides metrics.listenAddress and enables metrics.
	MetricsAddr string

	// Retry policy for failed starts. Zero retries disables it.
	Retries      int
	RetryBackoff time.Duration

	// Output selects how the final status report is rendered.
	Output formatting.OutputFormat

	// Stdout receives the status report. Logs go to LogOutput.
	Stdout    io.Writer
	LogOutput io.Writer

	// Loaded configuration; set by NewApplication when nil.
	Conductor *config.Config
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath string) *Config {
	return &Config{
		Debug:        debug,
		ConfigPath:   configPath,
		RetryBackoff: time.Second,
		Output:       formatting.FormatTable,
	}
}
