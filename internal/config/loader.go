package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/giantswarm/conductor/pkg/logging"
)

// DefaultConfigFileName is looked up in the working directory when no
// configuration file is given.
const DefaultConfigFileName = "conductor.yaml"

// Load reads the configuration file at path, applies defaults and validates
// the result. An empty path looks for DefaultConfigFileName in the working
// directory and falls back to the defaults when it does not exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			logging.Info("ConfigLoader", "No %s found, using defaults", path)
			return GetDefaultConfig(), nil
		}
		logging.Info("ConfigLoader", "Error loading %s: %s", path, err)
		return Config{}, newConfigurationError(path, "io", err)
	}

	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		var ce ConfigurationError
		if errors.As(err, &ce) {
			ce.FilePath = path
			ce.FileName = filepath.Base(path)
			return Config{}, ce
		}
		return Config{}, err
	}
	logging.Info("ConfigLoader", "Loaded configuration from %s", path)
	return cfg, nil
}

// Parse decodes a configuration document, applies defaults and validates it.
// Unknown fields are rejected.
func Parse(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, newConfigurationError("", "parse", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, newConfigurationError("", "validation", err)
	}
	return cfg, nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding configuration: %w", err)
	}
	return buf.Bytes(), nil
}
