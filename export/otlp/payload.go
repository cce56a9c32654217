// Package otlp builds the OTLP-flavored JSON bodies accepted by the
// ingestion backend. Only the field subset the backend consumes is
// produced; this is deliberately not a complete OTLP implementation.
package otlp

import (
	"time"

	"github.com/bytedance/sonic"

	"github.com/pulsewatch/pulsewatch-go/logs"
	"github.com/pulsewatch/pulsewatch-go/metric"
	"github.com/pulsewatch/pulsewatch-go/trace"
)

// Identity is the process identity attached to every exported batch. It is
// established once at startup and immutable afterwards.
type Identity struct {
	ServiceName   string
	Environment   string
	PodName       string
	ContainerName string
	NodeName      string
}

// KeyValue is one resource attribute.
type KeyValue struct {
	Key   string   `json:"key"`
	Value AnyValue `json:"value"`
}

// AnyValue carries a string attribute value.
type AnyValue struct {
	StringValue string `json:"stringValue"`
}

// Resource is the wire form of Identity.
type Resource struct {
	Attributes []KeyValue `json:"attributes"`
}

// Resource returns the wire attributes for the identity. service.name and
// deployment.environment are always present; Kubernetes attributes only
// when known.
func (id Identity) Resource() Resource {
	attrs := []KeyValue{
		attr("service.name", id.ServiceName),
		attr("deployment.environment", id.Environment),
	}
	if id.PodName != "" {
		attrs = append(attrs, attr("k8s.pod.name", id.PodName))
	}
	if id.ContainerName != "" {
		attrs = append(attrs, attr("k8s.container.name", id.ContainerName))
	}
	if id.NodeName != "" {
		attrs = append(attrs, attr("k8s.node.name", id.NodeName))
	}
	return Resource{Attributes: attrs}
}

func attr(key, value string) KeyValue {
	return KeyValue{Key: key, Value: AnyValue{StringValue: value}}
}

// unixNano converts a timestamp to the backend's nanosecond field:
// epoch milliseconds times 1e6.
func unixNano(t time.Time) int64 {
	return t.UnixMilli() * 1_000_000
}

// Span kind integer mapping.
func kindValue(kind trace.Kind) int {
	switch kind {
	case trace.KindInternal:
		return 1
	case trace.KindServer:
		return 2
	case trace.KindClient:
		return 3
	case trace.KindProducer:
		return 4
	case trace.KindConsumer:
		return 5
	default:
		return 0
	}
}

func statusCode(status trace.Status) int {
	if status == trace.StatusError {
		return 2
	}
	return 1
}

// SeverityNumber maps a level name to the backend's severity scale.
func SeverityNumber(level string) int {
	switch level {
	case "DEBUG":
		return 5
	case "INFO":
		return 9
	case "WARN", "WARNING":
		return 13
	case "ERROR":
		return 17
	case "FATAL":
		return 21
	default:
		return 9
	}
}

// --- Traces ---

type TracesPayload struct {
	ResourceSpans []ResourceSpans `json:"resourceSpans"`
}

type ResourceSpans struct {
	Resource   Resource     `json:"resource"`
	ScopeSpans []ScopeSpans `json:"scopeSpans"`
}

type ScopeSpans struct {
	Spans []Span `json:"spans"`
}

type Span struct {
	TraceID           string     `json:"traceId"`
	SpanID            string     `json:"spanId"`
	ParentSpanID      string     `json:"parentSpanId"`
	Name              string     `json:"name"`
	Kind              int        `json:"kind"`
	StartTimeUnixNano int64      `json:"startTimeUnixNano"`
	EndTimeUnixNano   int64      `json:"endTimeUnixNano"`
	Status            SpanStatus `json:"status"`
}

type SpanStatus struct {
	Code int `json:"code"`
}

// BuildTraces assembles the /v1/traces payload for one batch.
func BuildTraces(id Identity, records []trace.SpanRecord) TracesPayload {
	spans := make([]Span, 0, len(records))
	for _, r := range records {
		spans = append(spans, Span{
			TraceID:           r.TraceID,
			SpanID:            r.SpanID,
			ParentSpanID:      r.ParentSpanID,
			Name:              r.Operation,
			Kind:              kindValue(r.Kind),
			StartTimeUnixNano: unixNano(r.StartTime),
			EndTimeUnixNano:   unixNano(r.EndTime),
			Status:            SpanStatus{Code: statusCode(r.Status)},
		})
	}
	return TracesPayload{
		ResourceSpans: []ResourceSpans{{
			Resource:   id.Resource(),
			ScopeSpans: []ScopeSpans{{Spans: spans}},
		}},
	}
}

// EncodeTraces marshals the traces payload for one batch.
func EncodeTraces(id Identity, records []trace.SpanRecord) ([]byte, error) {
	return sonic.Marshal(BuildTraces(id, records))
}

// --- Metrics ---

type MetricsPayload struct {
	ResourceMetrics []ResourceMetrics `json:"resourceMetrics"`
}

type ResourceMetrics struct {
	Resource     Resource       `json:"resource"`
	ScopeMetrics []ScopeMetrics `json:"scopeMetrics"`
}

type ScopeMetrics struct {
	Metrics []Metric `json:"metrics"`
}

type Metric struct {
	Name  string `json:"name"`
	Gauge Gauge  `json:"gauge"`
}

type Gauge struct {
	DataPoints []DataPoint `json:"dataPoints"`
}

type DataPoint struct {
	AsDouble     float64 `json:"asDouble"`
	TimeUnixNano int64   `json:"timeUnixNano"`
}

// BuildMetrics assembles the /v1/metrics payload. Every sample type is
// carried in the gauge shape; the backend keys off the metric name.
func BuildMetrics(id Identity, samples []metric.Sample) MetricsPayload {
	metrics := make([]Metric, 0, len(samples))
	for _, s := range samples {
		metrics = append(metrics, Metric{
			Name: s.Name,
			Gauge: Gauge{
				DataPoints: []DataPoint{{
					AsDouble:     s.Value,
					TimeUnixNano: unixNano(s.Timestamp),
				}},
			},
		})
	}
	return MetricsPayload{
		ResourceMetrics: []ResourceMetrics{{
			Resource:     id.Resource(),
			ScopeMetrics: []ScopeMetrics{{Metrics: metrics}},
		}},
	}
}

// EncodeMetrics marshals the metrics payload for one batch.
func EncodeMetrics(id Identity, samples []metric.Sample) ([]byte, error) {
	return sonic.Marshal(BuildMetrics(id, samples))
}

// --- Logs ---

type LogsPayload struct {
	ResourceLogs []ResourceLogs `json:"resourceLogs"`
}

type ResourceLogs struct {
	Resource  Resource    `json:"resource"`
	ScopeLogs []ScopeLogs `json:"scopeLogs"`
}

type ScopeLogs struct {
	LogRecords []LogRecord `json:"logRecords"`
}

type LogRecord struct {
	TimeUnixNano   int64    `json:"timeUnixNano"`
	SeverityNumber int      `json:"severityNumber"`
	SeverityText   string   `json:"severityText"`
	Body           AnyValue `json:"body"`
	TraceID        string   `json:"traceId"`
	SpanID         string   `json:"spanId"`
}

// BuildLogs assembles the /v1/logs payload.
func BuildLogs(id Identity, records []logs.Record) LogsPayload {
	logRecords := make([]LogRecord, 0, len(records))
	for _, r := range records {
		logRecords = append(logRecords, LogRecord{
			TimeUnixNano:   unixNano(r.Timestamp),
			SeverityNumber: SeverityNumber(r.Level),
			SeverityText:   r.Level,
			Body:           AnyValue{StringValue: r.Message},
			TraceID:        r.TraceID,
			SpanID:         r.SpanID,
		})
	}
	return LogsPayload{
		ResourceLogs: []ResourceLogs{{
			Resource:  id.Resource(),
			ScopeLogs: []ScopeLogs{{LogRecords: logRecords}},
		}},
	}
}

// EncodeLogs marshals the logs payload for one batch.
func EncodeLogs(id Identity, records []logs.Record) ([]byte, error) {
	return sonic.Marshal(BuildLogs(id, records))
}
