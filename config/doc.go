// Package config provides configuration management for the Pulsewatch SDK.
//
// Configuration is layered: built-in defaults, then an optional YAML file
// (pulsewatch.yml), then PULSEWATCH_* environment variables. This mirrors
// how instrumented services ship a checked-in config file and override it
// per deployment.
//
// Configuration Sections:
//   - Top level: endpoint, service identity, Kubernetes attributes
//   - Metrics: export interval, runtime and HTTP metric toggles
//   - Tracing: sampling rate, context propagation
//   - Logging: minimum forwarded level, trace context attachment
//   - Export: buffer capacity, batch size, flush cadence, transport tuning
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("exporting to %s as %s\n", cfg.Endpoint, cfg.ServiceName)
//
// Environment Variables:
//   - PULSEWATCH_ENABLED, PULSEWATCH_ENDPOINT, PULSEWATCH_SERVICE_NAME
//   - PULSEWATCH_TRACING_SAMPLING_RATE, PULSEWATCH_METRICS_ENABLED
//   - PULSEWATCH_EXPORT_MAX_BUFFER_SIZE, PULSEWATCH_EXPORT_BATCH_SIZE
//
// Kubernetes identity (pod, container, node) is auto-detected from
// HOSTNAME, CONTAINER_NAME and NODE_NAME when not set explicitly.
package config
