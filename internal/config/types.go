package config

import (
	"time"
)

// Config is the top-level configuration structure for conductor.
type Config struct {
	Container ContainerConfig `yaml:"container"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Services  []ServiceConfig `yaml:"services,omitempty"`
}

// ContainerConfig tunes the service container.
type ContainerConfig struct {
	Workers          int           `yaml:"workers,omitempty"`          // Worker pool size (default: max(4, 2*GOMAXPROCS))
	ShutdownTimeout  time.Duration `yaml:"shutdownTimeout,omitempty"`  // Time allowed for removing every service (default: 30s)
	StabilityTimeout time.Duration `yaml:"stabilityTimeout,omitempty"` // Time allowed for the graph to settle after install (default: 30s)
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn or error (default: info)
	Format string `yaml:"format,omitempty"` // text or json (default: text)
}

// MetricsConfig controls the Prometheus endpoint of `conductor run`.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled,omitempty"`
	Namespace     string `yaml:"namespace,omitempty"`     // Metric name prefix (default: conductor)
	ListenAddress string `yaml:"listenAddress,omitempty"` // Address of the /metrics endpoint (default: localhost:9464)
}

// ServiceConfig declares one scripted service of the demonstration graph.
type ServiceConfig struct {
	Name                 string        `yaml:"name"`
	Aliases              []string      `yaml:"aliases,omitempty"`
	Dependencies         []string      `yaml:"dependencies,omitempty"`
	OptionalDependencies []string      `yaml:"optionalDependencies,omitempty"`
	Mode                 string        `yaml:"mode,omitempty"`       // ACTIVE or NEVER (default: ACTIVE)
	FailStarts           int           `yaml:"failStarts,omitempty"` // Number of start attempts that fail before one succeeds
	StartDelay           time.Duration `yaml:"startDelay,omitempty"`
	Value                any           `yaml:"value,omitempty"` // Value exposed to dependents while up
}
