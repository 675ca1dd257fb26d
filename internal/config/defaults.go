package config

import (
	"time"

	"github.com/giantswarm/conductor/internal/executor"
)

const (
	// DefaultShutdownTimeout bounds Container.Shutdown.
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultStabilityTimeout bounds the wait for a freshly installed graph.
	DefaultStabilityTimeout = 30 * time.Second

	// DefaultMetricsNamespace prefixes metric names.
	DefaultMetricsNamespace = "conductor"

	// DefaultMetricsListenAddress is where /metrics is served.
	DefaultMetricsListenAddress = "localhost:9464"
)

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() Config {
	return Config{
		Container: ContainerConfig{
			Workers:          executor.DefaultWorkers(),
			ShutdownTimeout:  DefaultShutdownTimeout,
			StabilityTimeout: DefaultStabilityTimeout,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Namespace:     DefaultMetricsNamespace,
			ListenAddress: DefaultMetricsListenAddress,
		},
	}
}

// applyDefaults fills zero fields left by a partial file.
func (c *Config) applyDefaults() {
	def := GetDefaultConfig()
	if c.Container.Workers == 0 {
		c.Container.Workers = def.Container.Workers
	}
	if c.Container.ShutdownTimeout == 0 {
		c.Container.ShutdownTimeout = def.Container.ShutdownTimeout
	}
	if c.Container.StabilityTimeout == 0 {
		c.Container.StabilityTimeout = def.Container.StabilityTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = def.Metrics.Namespace
	}
	if c.Metrics.ListenAddress == "" {
		c.Metrics.ListenAddress = def.Metrics.ListenAddress
	}
	for i := range c.Services {
		if c.Services[i].Mode == "" {
			c.Services[i].Mode = "ACTIVE"
		}
	}
}
