package metric

import (
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/v4/load"
	"go.uber.org/zap"
)

// Collector records application and process measurements and forwards them
// to the exporter. Recording is non-blocking and never returns an error to
// the caller.
type Collector struct {
	sink   Sink
	logger *zap.Logger

	interval       time.Duration
	includeRuntime bool

	// HTTP accumulators keyed by "METHOD:path".
	stats sync.Map // string -> *endpointStats

	// HTTP metrics
	requestsTotal   *prometheus.CounterVec
	requestErrors   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// endpointStats are process-local monotonic accumulators for one endpoint.
type endpointStats struct {
	requests  atomic.Int64
	errors    atomic.Int64
	latencyMs atomic.Int64
}

// EndpointSnapshot is a read-only view of one endpoint's accumulators.
type EndpointSnapshot struct {
	Requests  int64
	Errors    int64
	LatencyMs int64
}

// Config configures a Collector.
type Config struct {
	// ExportInterval is the cadence of the background resource sampler.
	ExportInterval time.Duration

	// IncludeRuntimeMetrics enables the background resource sampler.
	IncludeRuntimeMetrics bool

	// Registerer receives the collector's HTTP counter and histogram vecs.
	// A nil value falls back to a private registry, keeping tests and
	// multiple collectors in one process from colliding.
	Registerer prometheus.Registerer
}

// NewCollector creates a collector feeding sink. Call Start to launch the
// background resource sampler.
func NewCollector(cfg Config, sink Sink, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ExportInterval <= 0 {
		cfg.ExportInterval = 15 * time.Second
	}
	reg := cfg.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Collector{
		sink:           sink,
		logger:         logger,
		interval:       cfg.ExportInterval,
		includeRuntime: cfg.IncludeRuntimeMetrics,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsewatch_http_requests_total",
				Help: "Total number of HTTP requests observed",
			},
			[]string{"method", "path", "status"},
		),
		requestErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsewatch_http_request_errors_total",
				Help: "Total number of HTTP requests with status >= 400",
			},
			[]string{"method", "path"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulsewatch_http_request_duration_milliseconds",
				Help:    "HTTP request duration in milliseconds",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
			},
			[]string{"method", "path"},
		),
		done: make(chan struct{}),
	}
}

// RecordMetric emits a gauge sample.
func (c *Collector) RecordMetric(name string, value float64, labels map[string]string) {
	c.sink.ExportMetric(Sample{
		Name:      name,
		Value:     value,
		Timestamp: time.Now(),
		Type:      TypeGauge,
		Labels:    labels,
	})
}

// IncrementCounter emits a counter sample with implicit value 1.
func (c *Collector) IncrementCounter(name string, labels map[string]string) {
	c.sink.ExportMetric(Sample{
		Name:      name,
		Value:     1,
		Timestamp: time.Now(),
		Type:      TypeCounter,
		Labels:    labels,
	})
}

// RecordHTTPRequest updates the per-endpoint accumulators and prometheus
// vecs, and emits a histogram-typed latency sample. Status codes >= 400
// count as errors.
func (c *Collector) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	key := method + ":" + path
	value, _ := c.stats.LoadOrStore(key, &endpointStats{})
	stats := value.(*endpointStats)

	status := strconv.Itoa(statusCode)
	stats.requests.Add(1)
	stats.latencyMs.Add(duration.Milliseconds())
	c.requestsTotal.WithLabelValues(method, path, status).Inc()
	c.requestDuration.WithLabelValues(method, path).Observe(float64(duration.Milliseconds()))
	if statusCode >= 400 {
		stats.errors.Add(1)
		c.requestErrors.WithLabelValues(method, path).Inc()
	}

	c.sink.ExportMetric(Sample{
		Name:      "http.server.duration",
		Value:     float64(duration.Milliseconds()),
		Timestamp: time.Now(),
		Type:      TypeHistogram,
		Labels: map[string]string{
			"method":      method,
			"path":        path,
			"status_code": status,
		},
	})
}

// Snapshot returns the current accumulator values for every endpoint seen
// so far.
func (c *Collector) Snapshot() map[string]EndpointSnapshot {
	out := make(map[string]EndpointSnapshot)
	c.stats.Range(func(key, value any) bool {
		stats := value.(*endpointStats)
		out[key.(string)] = EndpointSnapshot{
			Requests:  stats.requests.Load(),
			Errors:    stats.errors.Load(),
			LatencyMs: stats.latencyMs.Load(),
		}
		return true
	})
	return out
}

// Start launches the background resource sampler when runtime metrics are
// enabled. It is a no-op otherwise and safe to call once.
func (c *Collector) Start() {
	if !c.includeRuntime {
		return
	}
	c.startOnce.Do(func() {
		go c.sampleLoop()
	})
}

// Stop terminates the background sampler.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}

func (c *Collector) sampleLoop() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collectRuntimeMetrics()
		case <-c.done:
			return
		}
	}
}

// collectRuntimeMetrics emits process gauges: heap usage, system load, and
// goroutine count. Runs independently of any request.
func (c *Collector) collectRuntimeMetrics() {
	now := time.Now()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	heapUsed := float64(mem.HeapAlloc)
	heapPercent := 0.0
	if mem.HeapSys > 0 {
		heapPercent = heapUsed * 100 / float64(mem.HeapSys)
	}

	c.emitGauge("go.memory.heap.used", heapUsed, now)
	c.emitGauge("go.memory.heap.percent", heapPercent, now)
	c.emitGauge("go.goroutines.count", float64(runtime.NumGoroutine()), now)

	if avg, err := load.Avg(); err == nil {
		c.emitGauge("system.cpu.load", avg.Load1, now)
	} else {
		c.logger.Debug("load average unavailable", zap.Error(err))
	}
}

func (c *Collector) emitGauge(name string, value float64, ts time.Time) {
	c.sink.ExportMetric(Sample{
		Name:      name,
		Value:     value,
		Timestamp: ts,
		Type:      TypeGauge,
	})
}
