package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a temporary config file
func createTempConfigFile(t *testing.T, dir string, content string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_DefaultOnly(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	var ce ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "io", ce.ErrorType)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_FullFile(t *testing.T) {
	dir := t.TempDir()
	path := createTempConfigFile(t, dir, `
container:
  workers: 3
  shutdownTimeout: 10s
logging:
  level: debug
  format: json
metrics:
  enabled: true
  namespace: demo
services:
  - name: db
    aliases: [sql]
    value: postgres://localhost/app
  - name: api.http
    dependencies: [db]
    optionalDependencies: [cache]
    mode: never
    failStarts: 2
    startDelay: 150ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Container.Workers)
	assert.Equal(t, 10*time.Second, cfg.Container.ShutdownTimeout)
	assert.Equal(t, DefaultStabilityTimeout, cfg.Container.StabilityTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "demo", cfg.Metrics.Namespace)
	assert.Equal(t, DefaultMetricsListenAddress, cfg.Metrics.ListenAddress)

	require.Len(t, cfg.Services, 2)
	db := cfg.Services[0]
	assert.Equal(t, "ACTIVE", db.Mode)
	assert.Equal(t, "postgres://localhost/app", db.Value)
	api := cfg.Services[1]
	assert.Equal(t, 2, api.FailStarts)
	assert.Equal(t, 150*time.Millisecond, api.StartDelay)

	n, err := api.ServiceName()
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "http"}, n.Segments())
	deps, err := api.DependencyNames()
	require.NoError(t, err)
	assert.Len(t, deps, 1)
}

func TestLoad_DefaultFileInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	createTempConfigFile(t, dir, "logging:\n  level: warn\n")
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		errorType string
		contains  string
	}{
		{
			name:      "malformed yaml",
			input:     "container: [",
			errorType: "parse",
		},
		{
			name:      "unknown field",
			input:     "container:\n  threads: 4\n",
			errorType: "parse",
			contains:  "threads",
		},
		{
			name:      "wrong type",
			input:     "container:\n  workers: many\n",
			errorType: "parse",
		},
		{
			name:      "invalid values",
			input:     "logging:\n  level: loud\n  format: xml\n",
			errorType: "validation",
			contains:  "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)

			var ce ConfigurationError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.errorType, ce.ErrorType)
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestParse_WrongTypeReportsLine(t *testing.T) {
	_, err := Parse(strings.NewReader("container:\n  workers: many\n"))
	var ce ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 2, ce.LineNumber)
	assert.Contains(t, ce.DetailedError(), "Line: 2")
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Services = []ServiceConfig{{Name: "db", Mode: "ACTIVE", StartDelay: time.Second}}

	data, err := Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "startDelay: 1s")

	parsed, err := Parse(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, cfg, parsed)
}
