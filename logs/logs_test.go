package logs

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type captureSink struct {
	mu      sync.Mutex
	records []Record
}

func (s *captureSink) ExportLog(record Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
}

func (s *captureSink) all() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

func newBridgeLogger(t *testing.T, cfg BridgeConfig) (*zap.Logger, *captureSink) {
	t.Helper()
	sink := &captureSink{}
	bridge := NewBridge(cfg, sink)
	logger := zap.New(bridge)
	return logger, sink
}

func TestBridgeForwardsEntries(t *testing.T) {
	logger, sink := newBridgeLogger(t, BridgeConfig{
		Service:  "order-svc",
		MinLevel: "INFO",
	})

	logger.Info("order created", zap.String("order_id", "o-1"), zap.Int("items", 3))

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, "order-svc", records[0].Service)
	assert.Equal(t, "INFO", records[0].Level)
	assert.Equal(t, "order created", records[0].Message)
	assert.Equal(t, "o-1", records[0].Attributes["order_id"])
	assert.Equal(t, "3", records[0].Attributes["items"])
	assert.False(t, records[0].Timestamp.IsZero())
}

func TestBridgeMinLevelGate(t *testing.T) {
	logger, sink := newBridgeLogger(t, BridgeConfig{
		Service:  "svc",
		MinLevel: "WARN",
	})

	logger.Debug("dropped")
	logger.Info("dropped too")
	logger.Warn("kept")
	logger.Error("kept as well")

	records := sink.all()
	require.Len(t, records, 2)
	assert.Equal(t, "WARN", records[0].Level)
	assert.Equal(t, "ERROR", records[1].Level)
}

func TestBridgeLiftsTraceContext(t *testing.T) {
	logger, sink := newBridgeLogger(t, BridgeConfig{
		Service:             "svc",
		MinLevel:            "INFO",
		IncludeTraceContext: true,
	})

	scoped := logger.With(
		zap.String(TraceIDKey, "0123456789abcdef0123456789abcdef"),
		zap.String(SpanIDKey, "0123456789abcdef"),
	)
	scoped.Info("handling request", zap.String("path", "/orders"))

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", records[0].TraceID)
	assert.Equal(t, "0123456789abcdef", records[0].SpanID)
	// Lifted fields do not leak into attributes.
	assert.NotContains(t, records[0].Attributes, TraceIDKey)
	assert.Equal(t, "/orders", records[0].Attributes["path"])
}

func TestBridgeKeepsTraceFieldsWhenDisabled(t *testing.T) {
	logger, sink := newBridgeLogger(t, BridgeConfig{
		Service:  "svc",
		MinLevel: "INFO",
	})

	logger.Info("msg", zap.String(TraceIDKey, "abc"))

	records := sink.all()
	require.Len(t, records, 1)
	assert.Empty(t, records[0].TraceID)
	assert.Equal(t, "abc", records[0].Attributes[TraceIDKey])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"DEBUG", zapcore.DebugLevel},
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"WARN", zapcore.WarnLevel},
		{"WARNING", zapcore.WarnLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"FATAL", zapcore.FatalLevel},
		{"bogus", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}

func TestNewLoggerWithBridge(t *testing.T) {
	sink := &captureSink{}
	bridge := NewBridge(BridgeConfig{Service: "svc", MinLevel: "INFO"}, sink)

	logger, err := NewLogger(LoggerConfig{Level: "info"}, bridge)
	require.NoError(t, err)

	logger.Info("through the tee")
	require.Len(t, sink.all(), 1)
	assert.Equal(t, "through the tee", sink.all()[0].Message)
}
