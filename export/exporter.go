package export

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pulsewatch/pulsewatch-go/export/otlp"
	"github.com/pulsewatch/pulsewatch-go/internal/queue"
	"github.com/pulsewatch/pulsewatch-go/logs"
	"github.com/pulsewatch/pulsewatch-go/metric"
	"github.com/pulsewatch/pulsewatch-go/trace"
)

// signal names one of the three independent buffers.
type signal string

const (
	signalSpans   signal = "spans"
	signalMetrics signal = "metrics"
	signalLogs    signal = "logs"
)

// Config configures the exporter.
type Config struct {
	// MaxBufferSize is the hard capacity of each buffer.
	MaxBufferSize int

	// BatchSize triggers an immediate flush and caps each drain.
	BatchSize int

	// FlushInterval is the periodic flush cadence.
	FlushInterval time.Duration

	// Transport overrides the HTTP transport built from the fields below.
	// Tests inject fakes here.
	Transport Transport

	TransportConfig
}

// Exporter buffers spans, metrics and logs in three independent bounded
// queues and ships them to the backend in batches. Producers never block
// and never see an error; overload is absorbed by dropping.
type Exporter struct {
	cfg       Config
	identity  otlp.Identity
	transport Transport
	logger    *zap.Logger

	spans   *queue.Bounded[trace.SpanRecord]
	metrics *queue.Bounded[metric.Sample]
	logRecs *queue.Bounded[logs.Record]

	flushCh  chan signal
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	registry  *prometheus.Registry
	telemetry *pipelineMetrics
}

// New creates and starts an exporter. Stop it with Shutdown.
func New(cfg Config, identity otlp.Identity, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBufferSize <= 0 {
		cfg.MaxBufferSize = 1000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}

	transport := cfg.Transport
	if transport == nil {
		transport = NewHTTPTransport(cfg.TransportConfig)
	}

	registry := prometheus.NewRegistry()
	e := &Exporter{
		cfg:       cfg,
		identity:  identity,
		transport: transport,
		logger:    logger,
		spans:     queue.NewBounded[trace.SpanRecord](cfg.MaxBufferSize),
		metrics:   queue.NewBounded[metric.Sample](cfg.MaxBufferSize),
		logRecs:   queue.NewBounded[logs.Record](cfg.MaxBufferSize),
		flushCh:   make(chan signal, 3),
		done:      make(chan struct{}),
		registry:  registry,
		telemetry: newPipelineMetrics(registry),
	}

	e.wg.Add(1)
	go e.run()

	return e
}

// Gatherer exposes the exporter's own counters so host applications can
// serve them from their metrics endpoint.
func (e *Exporter) Gatherer() prometheus.Gatherer {
	return e.registry
}

// Registerer lets other pipeline components publish their self-metrics
// through the same registry Gatherer exposes.
func (e *Exporter) Registerer() prometheus.Registerer {
	return e.registry
}

// ExportSpan enqueues a finished span. Full buffer drops silently.
func (e *Exporter) ExportSpan(record trace.SpanRecord) {
	e.enqueue(signalSpans, func() (int, bool) { return e.spans.Offer(record) })
}

// ExportMetric enqueues a sample. Full buffer drops silently.
func (e *Exporter) ExportMetric(sample metric.Sample) {
	e.enqueue(signalMetrics, func() (int, bool) { return e.metrics.Offer(sample) })
}

// ExportLog enqueues a log record. Full buffer drops silently.
func (e *Exporter) ExportLog(record logs.Record) {
	e.enqueue(signalLogs, func() (int, bool) { return e.logRecs.Offer(record) })
}

func (e *Exporter) enqueue(sig signal, offer func() (int, bool)) {
	length, ok := offer()
	if !ok {
		e.telemetry.dropped.WithLabelValues(string(sig)).Inc()
		return
	}
	e.telemetry.enqueued.WithLabelValues(string(sig)).Inc()

	if length >= e.cfg.BatchSize {
		e.triggerFlush(sig)
	}
}

// triggerFlush asks the worker to flush sig. The send never blocks the
// producer; a pending trigger for the same worker cycle coalesces.
func (e *Exporter) triggerFlush(sig signal) {
	select {
	case e.flushCh <- sig:
	default:
	}
}

// SpanQueueLen reports the current span buffer depth.
func (e *Exporter) SpanQueueLen() int { return e.spans.Len() }

// MetricQueueLen reports the current metric buffer depth.
func (e *Exporter) MetricQueueLen() int { return e.metrics.Len() }

// LogQueueLen reports the current log buffer depth.
func (e *Exporter) LogQueueLen() int { return e.logRecs.Len() }

// run is the single consumer: it serves threshold triggers and the
// periodic timer, and owns all transport I/O.
func (e *Exporter) run() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.flushAll(context.Background())
		case sig := <-e.flushCh:
			e.flush(context.Background(), sig)
		case <-e.done:
			return
		}
	}
}

func (e *Exporter) flushAll(ctx context.Context) {
	e.flush(ctx, signalSpans)
	e.flush(ctx, signalMetrics)
	e.flush(ctx, signalLogs)
}

func (e *Exporter) flush(ctx context.Context, sig signal) {
	switch sig {
	case signalSpans:
		flushQueue(ctx, e, sig, e.spans, "/v1/traces",
			func(batch []trace.SpanRecord) ([]byte, error) {
				return otlp.EncodeTraces(e.identity, batch)
			})
	case signalMetrics:
		flushQueue(ctx, e, sig, e.metrics, "/v1/metrics",
			func(batch []metric.Sample) ([]byte, error) {
				return otlp.EncodeMetrics(e.identity, batch)
			})
	case signalLogs:
		flushQueue(ctx, e, sig, e.logRecs, "/v1/logs",
			func(batch []logs.Record) ([]byte, error) {
				return otlp.EncodeLogs(e.identity, batch)
			})
	}
}

// flushQueue drains one batch, encodes it, and attempts transport. On
// transport failure the batch is re-enqueued behind newer arrivals, bounded
// by remaining capacity. A serialization failure discards the batch: broken
// data would fail identically on every retry.
func flushQueue[T any](ctx context.Context, e *Exporter, sig signal, q *queue.Bounded[T], path string, encode func([]T) ([]byte, error)) {
	batch := q.Drain(e.cfg.BatchSize)
	if len(batch) == 0 {
		return
	}

	body, err := encode(batch)
	if err != nil {
		e.telemetry.failed.WithLabelValues(string(sig)).Inc()
		e.logger.Error("payload serialization failed, discarding batch",
			zap.String("signal", string(sig)),
			zap.Int("batch_size", len(batch)),
			zap.Error(err),
		)
		return
	}

	sendCtx := ctx
	if e.cfg.TransportConfig.Timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, e.cfg.TransportConfig.Timeout)
		defer cancel()
	}

	if err := e.transport.Send(sendCtx, path, body); err != nil {
		kept := q.Requeue(batch)
		e.telemetry.failed.WithLabelValues(string(sig)).Inc()
		if lost := len(batch) - kept; lost > 0 {
			e.telemetry.dropped.WithLabelValues(string(sig)).Add(float64(lost))
		}
		e.logger.Warn("flush failed, batch re-enqueued",
			zap.String("signal", string(sig)),
			zap.Int("batch_size", len(batch)),
			zap.Int("requeued", kept),
			zap.Error(err),
		)
		return
	}

	e.telemetry.exported.WithLabelValues(string(sig)).Add(float64(len(batch)))
}

// Shutdown stops the periodic scheduler and runs one final flush of all
// three queues, bounded by ctx. In-flight sends are not guaranteed to
// complete before process exit.
func (e *Exporter) Shutdown(ctx context.Context) {
	e.stopOnce.Do(func() {
		close(e.done)
	})
	e.wg.Wait()

	finished := make(chan struct{})
	go func() {
		e.flushAll(ctx)
		close(finished)
	}()

	select {
	case <-finished:
	case <-ctx.Done():
		e.logger.Warn("shutdown flush timed out, abandoning remaining telemetry")
	}
}
