package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix for all environment variable overrides.
const EnvPrefix = "PULSEWATCH"

// DefaultFile is the config file consulted by LoadOrDefault when present.
const DefaultFile = "pulsewatch.yml"

// Config holds all SDK configuration.
type Config struct {
	// Enabled turns the whole pipeline on or off. When false the SDK
	// installs no-op components.
	Enabled bool `yaml:"enabled" envconfig:"ENABLED"`

	// Endpoint is the base URL of the ingestion backend. Signal paths
	// (/v1/traces, /v1/metrics, /v1/logs) are appended to it.
	Endpoint string `yaml:"endpoint" envconfig:"ENDPOINT"`

	// ServiceName identifies this process in every exported batch.
	ServiceName string `yaml:"serviceName" envconfig:"SERVICE_NAME"`

	// Environment is the deployment environment (dev, staging, production).
	Environment string `yaml:"environment" envconfig:"ENVIRONMENT"`

	// PodName, ContainerName and NodeName are Kubernetes identity
	// attributes. When unset they are auto-detected from the process
	// environment (HOSTNAME, CONTAINER_NAME, NODE_NAME).
	PodName       string `yaml:"podName" envconfig:"POD_NAME"`
	ContainerName string `yaml:"containerName" envconfig:"CONTAINER_NAME"`
	NodeName      string `yaml:"nodeName" envconfig:"NODE_NAME"`

	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Logging LoggingConfig `yaml:"logging"`
	Export  ExportConfig  `yaml:"export"`
}

// MetricsConfig controls the metrics collector.
type MetricsConfig struct {
	Enabled               bool `yaml:"enabled" envconfig:"METRICS_ENABLED"`
	ExportIntervalSeconds int  `yaml:"exportIntervalSeconds" envconfig:"METRICS_EXPORT_INTERVAL_SECONDS"`
	IncludeRuntimeMetrics bool `yaml:"includeRuntimeMetrics" envconfig:"METRICS_INCLUDE_RUNTIME_METRICS"`
	IncludeHTTPMetrics    bool `yaml:"includeHttpMetrics" envconfig:"METRICS_INCLUDE_HTTP_METRICS"`
}

// TracingConfig controls span creation and propagation.
type TracingConfig struct {
	Enabled          bool    `yaml:"enabled" envconfig:"TRACING_ENABLED"`
	SamplingRate     float64 `yaml:"samplingRate" envconfig:"TRACING_SAMPLING_RATE"`
	PropagateContext bool    `yaml:"propagateContext" envconfig:"TRACING_PROPAGATE_CONTEXT"`
}

// LoggingConfig controls log forwarding.
type LoggingConfig struct {
	Enabled             bool   `yaml:"enabled" envconfig:"LOGGING_ENABLED"`
	MinLevel            string `yaml:"minLevel" envconfig:"LOGGING_MIN_LEVEL"`
	IncludeTraceContext bool   `yaml:"includeTraceContext" envconfig:"LOGGING_INCLUDE_TRACE_CONTEXT"`
}

// ExportConfig controls the exporter's buffering and transport behavior.
type ExportConfig struct {
	// MaxBufferSize is the hard capacity of each signal buffer. Items
	// arriving once a buffer is full are dropped.
	MaxBufferSize int `yaml:"maxBufferSize" envconfig:"EXPORT_MAX_BUFFER_SIZE"`

	// BatchSize is both the threshold that triggers an immediate flush
	// and the maximum number of items drained per flush.
	BatchSize int `yaml:"batchSize" envconfig:"EXPORT_BATCH_SIZE"`

	// FlushIntervalSeconds is the periodic flush cadence.
	FlushIntervalSeconds int `yaml:"flushIntervalSeconds" envconfig:"EXPORT_FLUSH_INTERVAL_SECONDS"`

	// TimeoutSeconds bounds each transport call.
	TimeoutSeconds int `yaml:"timeoutSeconds" envconfig:"EXPORT_TIMEOUT_SECONDS"`

	// Compression enables gzip encoding of request bodies.
	Compression bool `yaml:"compression" envconfig:"EXPORT_COMPRESSION"`

	// MaxRequestsPerSecond rate-limits transport calls. Zero or negative
	// means unlimited.
	MaxRequestsPerSecond float64 `yaml:"maxRequestsPerSecond" envconfig:"EXPORT_MAX_REQUESTS_PER_SECOND"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Enabled:     true,
		Endpoint:    "http://localhost:8080",
		ServiceName: "unknown-service",
		Environment: "default",
		Metrics: MetricsConfig{
			Enabled:               true,
			ExportIntervalSeconds: 15,
			IncludeRuntimeMetrics: true,
			IncludeHTTPMetrics:    true,
		},
		Tracing: TracingConfig{
			Enabled:          true,
			SamplingRate:     1.0,
			PropagateContext: true,
		},
		Logging: LoggingConfig{
			Enabled:             true,
			MinLevel:            "INFO",
			IncludeTraceContext: true,
		},
		Export: ExportConfig{
			MaxBufferSize:        1000,
			BatchSize:            100,
			FlushIntervalSeconds: 5,
			TimeoutSeconds:       10,
		},
	}
}

// Load builds the configuration with the precedence defaults, then the
// YAML file at path (skipped when path is empty or missing), then
// PULSEWATCH_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("config: process environment: %w", err)
	}

	cfg.detectIdentity()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from DefaultFile and the environment,
// falling back to defaults on any error.
func LoadOrDefault() *Config {
	cfg, err := Load(DefaultFile)
	if err != nil {
		d := Default()
		d.detectIdentity()
		return d
	}
	return cfg
}

// Validate checks invariants that would otherwise surface deep inside the
// pipeline.
func (c *Config) Validate() error {
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return fmt.Errorf("config: sampling rate %v outside [0.0, 1.0]", c.Tracing.SamplingRate)
	}
	if c.Export.BatchSize <= 0 {
		return fmt.Errorf("config: batch size must be positive, got %d", c.Export.BatchSize)
	}
	if c.Export.MaxBufferSize < c.Export.BatchSize {
		return fmt.Errorf("config: max buffer size %d below batch size %d",
			c.Export.MaxBufferSize, c.Export.BatchSize)
	}
	return nil
}

// detectIdentity fills Kubernetes identity attributes from the process
// environment when they were not configured explicitly.
func (c *Config) detectIdentity() {
	if c.PodName == "" {
		c.PodName = os.Getenv("HOSTNAME")
	}
	if c.ContainerName == "" {
		c.ContainerName = os.Getenv("CONTAINER_NAME")
	}
	if c.NodeName == "" {
		c.NodeName = os.Getenv("NODE_NAME")
	}
}
