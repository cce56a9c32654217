/*
Package pulsewatch wires the telemetry pipeline together: a tracer, a
metrics collector, a zap logger bridged into the exporter, and the
exporter itself shipping batches to the ingestion backend.

Typical setup:

	cfg := config.LoadOrDefault()
	sdk, err := pulsewatch.Init(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer sdk.Shutdown(context.Background())

	router := gin.New()
	router.Use(sdk.Middleware())

Init never fails because the backend is unreachable; export errors
surface later through the pipeline's own logs and counters.
*/
package pulsewatch

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pulsewatch/pulsewatch-go/config"
	"github.com/pulsewatch/pulsewatch-go/export"
	"github.com/pulsewatch/pulsewatch-go/export/otlp"
	"github.com/pulsewatch/pulsewatch-go/logs"
	"github.com/pulsewatch/pulsewatch-go/metric"
	"github.com/pulsewatch/pulsewatch-go/middleware"
	"github.com/pulsewatch/pulsewatch-go/trace"
)

// SDK owns every pipeline component. Create one per process with Init and
// release it with Shutdown.
type SDK struct {
	cfg       *config.Config
	exporter  *export.Exporter
	tracer    *trace.Tracer
	collector *metric.Collector
	logger    *zap.Logger
}

type nopSpanSink struct{}

func (nopSpanSink) ExportSpan(trace.SpanRecord) {}

type nopMetricSink struct{}

func (nopMetricSink) ExportMetric(metric.Sample) {}

// Init builds and starts the pipeline described by cfg. A nil cfg loads
// configuration from pulsewatch.yml and the environment. When the SDK is
// disabled every component is a no-op and no goroutines are started.
func Init(cfg *config.Config) (*SDK, error) {
	if cfg == nil {
		cfg = config.LoadOrDefault()
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !cfg.Enabled {
		return newDisabled(cfg)
	}

	// The pipeline's own logger stays outside the bridge so export
	// failures cannot feed back into the exporter.
	pipelineLogger, err := logs.NewLogger(logs.LoggerConfig{Level: cfg.Logging.MinLevel}, nil)
	if err != nil {
		return nil, err
	}
	pipelineLogger = pipelineLogger.Named("pulsewatch")

	exporter := export.New(export.Config{
		MaxBufferSize: cfg.Export.MaxBufferSize,
		BatchSize:     cfg.Export.BatchSize,
		FlushInterval: time.Duration(cfg.Export.FlushIntervalSeconds) * time.Second,
		TransportConfig: export.TransportConfig{
			Endpoint:             cfg.Endpoint,
			Timeout:              time.Duration(cfg.Export.TimeoutSeconds) * time.Second,
			Compression:          cfg.Export.Compression,
			MaxRequestsPerSecond: cfg.Export.MaxRequestsPerSecond,
		},
	}, otlp.Identity{
		ServiceName:   cfg.ServiceName,
		Environment:   cfg.Environment,
		PodName:       cfg.PodName,
		ContainerName: cfg.ContainerName,
		NodeName:      cfg.NodeName,
	}, pipelineLogger)

	var bridge *logs.Bridge
	if cfg.Logging.Enabled {
		bridge = logs.NewBridge(logs.BridgeConfig{
			Service:             cfg.ServiceName,
			MinLevel:            cfg.Logging.MinLevel,
			IncludeTraceContext: cfg.Logging.IncludeTraceContext,
		}, exporter)
	}
	logger, err := logs.NewLogger(logs.LoggerConfig{Level: cfg.Logging.MinLevel}, bridge)
	if err != nil {
		exporter.Shutdown(context.Background())
		return nil, err
	}

	tracer := trace.New(trace.Config{
		Service:      cfg.ServiceName,
		SamplingRate: cfg.Tracing.SamplingRate,
		Enabled:      cfg.Tracing.Enabled,
	}, exporter, pipelineLogger)

	var metricSink metric.Sink = exporter
	if !cfg.Metrics.Enabled {
		metricSink = nopMetricSink{}
	}
	collectorCfg := metric.Config{
		ExportInterval:        time.Duration(cfg.Metrics.ExportIntervalSeconds) * time.Second,
		IncludeRuntimeMetrics: cfg.Metrics.IncludeRuntimeMetrics,
	}
	if cfg.Metrics.Enabled {
		collectorCfg.Registerer = exporter.Registerer()
	}
	collector := metric.NewCollector(collectorCfg, metricSink, pipelineLogger)
	if cfg.Metrics.Enabled {
		collector.Start()
	}

	return &SDK{
		cfg:       cfg,
		exporter:  exporter,
		tracer:    tracer,
		collector: collector,
		logger:    logger,
	}, nil
}

// newDisabled assembles inert components so callers can hold the same
// handles whether or not telemetry is on.
func newDisabled(cfg *config.Config) (*SDK, error) {
	logger, err := logs.NewLogger(logs.LoggerConfig{Level: cfg.Logging.MinLevel}, nil)
	if err != nil {
		return nil, err
	}
	return &SDK{
		cfg:       cfg,
		tracer:    trace.New(trace.Config{Service: cfg.ServiceName, Enabled: false}, nopSpanSink{}, nil),
		collector: metric.NewCollector(metric.Config{}, nopMetricSink{}, nil),
		logger:    logger,
	}, nil
}

// Tracer returns the span factory.
func (s *SDK) Tracer() *trace.Tracer { return s.tracer }

// Metrics returns the metrics collector.
func (s *SDK) Metrics() *metric.Collector { return s.collector }

// Logger returns the application logger. Entries at or above the
// configured minimum level are forwarded to the exporter.
func (s *SDK) Logger() *zap.Logger { return s.logger }

// Config returns the effective configuration.
func (s *SDK) Config() *config.Config { return s.cfg }

// Gatherer exposes the pipeline's self-metrics, or nil when disabled.
func (s *SDK) Gatherer() prometheus.Gatherer {
	if s.exporter == nil {
		return nil
	}
	return s.exporter.Gatherer()
}

// Middleware returns gin middleware instrumenting inbound requests
// according to the tracing and metrics configuration.
func (s *SDK) Middleware() gin.HandlerFunc {
	return middleware.Tracing(s.tracer, s.collector, middleware.Options{
		PropagateContext:   s.cfg.Tracing.PropagateContext,
		IncludeHTTPMetrics: s.cfg.Metrics.Enabled && s.cfg.Metrics.IncludeHTTPMetrics,
		Logger:             s.logger,
	})
}

// InstrumentClient instruments an outbound resty client with CLIENT spans
// and traceparent propagation.
func (s *SDK) InstrumentClient(client *resty.Client) *resty.Client {
	return middleware.InstrumentClient(client, s.tracer, s.cfg.Tracing.PropagateContext)
}

// Shutdown stops the sampler, drains the exporter and syncs the logger.
// The context bounds the final flush.
func (s *SDK) Shutdown(ctx context.Context) {
	if s.collector != nil {
		s.collector.Stop()
	}
	if s.exporter != nil {
		s.exporter.Shutdown(ctx)
	}
	_ = s.logger.Sync()
}
