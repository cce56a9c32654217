package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "http://localhost:8080", cfg.Endpoint)
	assert.Equal(t, "unknown-service", cfg.ServiceName)
	assert.Equal(t, "default", cfg.Environment)

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 15, cfg.Metrics.ExportIntervalSeconds)
	assert.True(t, cfg.Metrics.IncludeRuntimeMetrics)
	assert.True(t, cfg.Metrics.IncludeHTTPMetrics)

	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, 1.0, cfg.Tracing.SamplingRate)
	assert.True(t, cfg.Tracing.PropagateContext)

	assert.True(t, cfg.Logging.Enabled)
	assert.Equal(t, "INFO", cfg.Logging.MinLevel)

	assert.Equal(t, 1000, cfg.Export.MaxBufferSize)
	assert.Equal(t, 100, cfg.Export.BatchSize)
	assert.Equal(t, 5, cfg.Export.FlushIntervalSeconds)
	assert.Equal(t, 10, cfg.Export.TimeoutSeconds)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pulsewatch.yml")

	data := `
endpoint: http://collector:4318
serviceName: order-svc
environment: staging
tracing:
  samplingRate: 0.25
export:
  batchSize: 50
  maxBufferSize: 500
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://collector:4318", cfg.Endpoint)
	assert.Equal(t, "order-svc", cfg.ServiceName)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 0.25, cfg.Tracing.SamplingRate)
	assert.Equal(t, 50, cfg.Export.BatchSize)
	assert.Equal(t, 500, cfg.Export.MaxBufferSize)

	// Untouched sections keep defaults.
	assert.Equal(t, 15, cfg.Metrics.ExportIntervalSeconds)
	assert.True(t, cfg.Tracing.PropagateContext)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Equal(t, "unknown-service", cfg.ServiceName)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PULSEWATCH_ENDPOINT":              "http://override:9999",
		"PULSEWATCH_SERVICE_NAME":          "env-svc",
		"PULSEWATCH_TRACING_SAMPLING_RATE": "0.5",
		"PULSEWATCH_EXPORT_BATCH_SIZE":     "25",
	}
	for k, v := range envVars {
		t.Setenv(k, v)
	}

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://override:9999", cfg.Endpoint)
	assert.Equal(t, "env-svc", cfg.ServiceName)
	assert.Equal(t, 0.5, cfg.Tracing.SamplingRate)
	assert.Equal(t, 25, cfg.Export.BatchSize)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pulsewatch.yml")
	require.NoError(t, os.WriteFile(path, []byte("serviceName: file-svc\n"), 0o644))

	t.Setenv("PULSEWATCH_SERVICE_NAME", "env-svc")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-svc", cfg.ServiceName)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "sampling rate above one",
			mutate:  func(c *Config) { c.Tracing.SamplingRate = 1.5 },
			wantErr: true,
		},
		{
			name:    "negative sampling rate",
			mutate:  func(c *Config) { c.Tracing.SamplingRate = -0.1 },
			wantErr: true,
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.Export.BatchSize = 0 },
			wantErr: true,
		},
		{
			name: "buffer smaller than batch",
			mutate: func(c *Config) {
				c.Export.MaxBufferSize = 10
				c.Export.BatchSize = 100
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIdentityAutodetect(t *testing.T) {
	t.Setenv("HOSTNAME", "order-svc-7d9f8")
	t.Setenv("NODE_NAME", "node-3")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "order-svc-7d9f8", cfg.PodName)
	assert.Equal(t, "node-3", cfg.NodeName)
}
