package otlp

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsewatch/pulsewatch-go/logs"
	"github.com/pulsewatch/pulsewatch-go/metric"
	"github.com/pulsewatch/pulsewatch-go/trace"
)

var testIdentity = Identity{
	ServiceName: "order-svc",
	Environment: "staging",
	PodName:     "order-svc-7d9f8",
	NodeName:    "node-3",
}

func TestResourceAttributes(t *testing.T) {
	res := testIdentity.Resource()

	byKey := make(map[string]string)
	for _, kv := range res.Attributes {
		byKey[kv.Key] = kv.Value.StringValue
	}

	assert.Equal(t, "order-svc", byKey["service.name"])
	assert.Equal(t, "staging", byKey["deployment.environment"])
	assert.Equal(t, "order-svc-7d9f8", byKey["k8s.pod.name"])
	assert.Equal(t, "node-3", byKey["k8s.node.name"])
	// Unknown container name is omitted entirely.
	assert.NotContains(t, byKey, "k8s.container.name")
}

func TestEncodeTraces(t *testing.T) {
	start := time.UnixMilli(1700000000000)
	end := start.Add(42 * time.Millisecond)

	body, err := EncodeTraces(testIdentity, []trace.SpanRecord{{
		TraceID:      "0123456789abcdef0123456789abcdef",
		SpanID:       "0123456789abcdef",
		ParentSpanID: "fedcba9876543210",
		Operation:    "order.create",
		Kind:         trace.KindServer,
		StartTime:    start,
		EndTime:      end,
		Status:       trace.StatusError,
	}})
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))

	resourceSpans := payload["resourceSpans"].([]any)
	require.Len(t, resourceSpans, 1)
	first := resourceSpans[0].(map[string]any)
	require.Contains(t, first, "resource")

	scopeSpans := first["scopeSpans"].([]any)
	spans := scopeSpans[0].(map[string]any)["spans"].([]any)
	require.Len(t, spans, 1)

	span := spans[0].(map[string]any)
	assert.Equal(t, "order.create", span["name"])
	assert.Equal(t, float64(2), span["kind"]) // SERVER
	assert.Equal(t, float64(1700000000000)*1e6, span["startTimeUnixNano"])
	assert.Equal(t, float64(1700000000042)*1e6, span["endTimeUnixNano"])
	assert.Equal(t, float64(2), span["status"].(map[string]any)["code"]) // ERROR
	assert.Equal(t, "fedcba9876543210", span["parentSpanId"])
}

func TestKindMapping(t *testing.T) {
	tests := []struct {
		kind trace.Kind
		want int
	}{
		{trace.KindInternal, 1},
		{trace.KindServer, 2},
		{trace.KindClient, 3},
		{trace.KindProducer, 4},
		{trace.KindConsumer, 5},
		{trace.Kind("BOGUS"), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, kindValue(tt.kind), "kind %s", tt.kind)
	}
}

func TestEncodeMetrics(t *testing.T) {
	ts := time.UnixMilli(1700000000000)

	body, err := EncodeMetrics(testIdentity, []metric.Sample{
		{Name: "orders.created", Value: 1, Timestamp: ts, Type: metric.TypeCounter},
		{Name: "go.memory.heap.used", Value: 1024, Timestamp: ts, Type: metric.TypeGauge},
	})
	require.NoError(t, err)

	var payload MetricsPayload
	require.NoError(t, json.Unmarshal(body, &payload))

	require.Len(t, payload.ResourceMetrics, 1)
	metrics := payload.ResourceMetrics[0].ScopeMetrics[0].Metrics
	require.Len(t, metrics, 2)

	assert.Equal(t, "orders.created", metrics[0].Name)
	require.Len(t, metrics[0].Gauge.DataPoints, 1)
	assert.Equal(t, 1.0, metrics[0].Gauge.DataPoints[0].AsDouble)
	assert.Equal(t, int64(1700000000000)*1_000_000, metrics[0].Gauge.DataPoints[0].TimeUnixNano)

	assert.Equal(t, "go.memory.heap.used", metrics[1].Name)
	assert.Equal(t, 1024.0, metrics[1].Gauge.DataPoints[0].AsDouble)
}

func TestEncodeLogs(t *testing.T) {
	ts := time.UnixMilli(1700000000000)

	body, err := EncodeLogs(testIdentity, []logs.Record{{
		Service:   "order-svc",
		Level:     "ERROR",
		Message:   "payment failed",
		Timestamp: ts,
		TraceID:   "0123456789abcdef0123456789abcdef",
		SpanID:    "0123456789abcdef",
	}})
	require.NoError(t, err)

	var payload LogsPayload
	require.NoError(t, json.Unmarshal(body, &payload))

	records := payload.ResourceLogs[0].ScopeLogs[0].LogRecords
	require.Len(t, records, 1)
	assert.Equal(t, 17, records[0].SeverityNumber)
	assert.Equal(t, "ERROR", records[0].SeverityText)
	assert.Equal(t, "payment failed", records[0].Body.StringValue)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", records[0].TraceID)
}

func TestSeverityNumbers(t *testing.T) {
	tests := []struct {
		level string
		want  int
	}{
		{"DEBUG", 5},
		{"INFO", 9},
		{"WARN", 13},
		{"WARNING", 13},
		{"ERROR", 17},
		{"FATAL", 21},
		{"TRACE", 9},
		{"", 9},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SeverityNumber(tt.level), "level %q", tt.level)
	}
}
