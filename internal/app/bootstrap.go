package app

import (
	"fmt"
	"io"
	"os"

	"github.com/giantswarm/conductor/internal/config"
	"github.com/giantswarm/conductor/internal/metrics"
	"github.com/giantswarm/conductor/pkg/logging"

	"github.com/prometheus/client_golang/prometheus"
)

// Application wires a loaded configuration to a service container and runs
// the declared graph until it settles, or until it is signalled when holding.
//
// Example usage:
//
//	cfg := app.NewConfig(false, "conductor.yaml")
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return application.Run(ctx)
type Application struct {
	config    *Config
	collector *metrics.Collector
	registry  *prometheus.Registry
}

// NewApplication configures logging and loads the configuration file unless
// cfg.Conductor is already set. The --debug flag wins over logging.level.
func NewApplication(cfg *Config) (*Application, error) {
	if cfg.Conductor == nil {
		loaded, err := config.Load(cfg.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load conductor configuration: %w", err)
		}
		cfg.Conductor = &loaded
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}

	if err := initLogging(cfg); err != nil {
		return nil, err
	}

	if cfg.MetricsAddr != "" {
		cfg.Conductor.Metrics.Enabled = true
		cfg.Conductor.Metrics.ListenAddress = cfg.MetricsAddr
	}

	a := &Application{config: cfg}
	if cfg.Conductor.Metrics.Enabled {
		namespace := cfg.Conductor.Metrics.Namespace
		if namespace == "" {
			namespace = config.DefaultMetricsNamespace
		}
		a.collector = metrics.NewCollector(namespace)
		a.registry = prometheus.NewRegistry()
		if err := a.registry.Register(a.collector); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	logging.Info("Bootstrap", "Loaded %d service declarations", len(cfg.Conductor.Services))
	return a, nil
}

func initLogging(cfg *Config) error {
	level := logging.LevelInfo
	if name := cfg.Conductor.Logging.Level; name != "" {
		parsed, err := logging.ParseLevel(name)
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		level = parsed
	}
	if cfg.Debug {
		level = logging.LevelDebug
	}

	var output io.Writer = os.Stderr
	if cfg.LogOutput != nil {
		output = cfg.LogOutput
	}
	logging.Init(level, logging.Format(cfg.Conductor.Logging.Format), output)
	return nil
}
