// Package logs forwards application log entries to the exporter and builds
// the SDK's own zap logger.
//
// The bridge is a zapcore.Core that tees every enabled entry into the
// export pipeline as a LogRecord. Trace correlation rides on logger fields:
// request-scoped loggers created by the middleware carry trace_id/span_id
// fields, which the bridge lifts into the record when IncludeTraceContext
// is set. Failures inside the bridge are absorbed; logging never feeds back
// an error into the host application.
package logs

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Record is one forwarded log entry.
type Record struct {
	Service    string
	Level      string
	Message    string
	Timestamp  time.Time
	TraceID    string
	SpanID     string
	Attributes map[string]string
}

// Sink receives log records. The exporter implements it.
type Sink interface {
	ExportLog(record Record)
}

// Field keys recognized for trace correlation.
const (
	TraceIDKey = "trace_id"
	SpanIDKey  = "span_id"
)

// ParseLevel maps a severity name (DEBUG, INFO, WARN, ERROR, FATAL) to a
// zap level, defaulting to INFO.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "INFO":
		return zapcore.InfoLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	case "FATAL":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// BridgeConfig configures the forwarding core.
type BridgeConfig struct {
	Service             string
	MinLevel            string
	IncludeTraceContext bool
}

// Bridge is a zapcore.Core that forwards enabled entries to the exporter.
type Bridge struct {
	cfg    BridgeConfig
	min    zapcore.Level
	sink   Sink
	fields []zapcore.Field
}

// NewBridge creates a forwarding core with the given minimum level.
func NewBridge(cfg BridgeConfig, sink Sink) *Bridge {
	return &Bridge{
		cfg:  cfg,
		min:  ParseLevel(cfg.MinLevel),
		sink: sink,
	}
}

// Enabled implements zapcore.LevelEnabler.
func (b *Bridge) Enabled(level zapcore.Level) bool {
	return level >= b.min
}

// With returns a copy of the bridge carrying additional structured fields.
func (b *Bridge) With(fields []zapcore.Field) zapcore.Core {
	clone := *b
	clone.fields = make([]zapcore.Field, 0, len(b.fields)+len(fields))
	clone.fields = append(clone.fields, b.fields...)
	clone.fields = append(clone.fields, fields...)
	return &clone
}

// Check implements zapcore.Core.
func (b *Bridge) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if b.Enabled(entry.Level) {
		return checked.AddCore(entry, b)
	}
	return checked
}

// Write converts the entry into a Record and hands it to the sink.
func (b *Bridge) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range b.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	record := Record{
		Service:   b.cfg.Service,
		Level:     severityText(entry.Level),
		Message:   entry.Message,
		Timestamp: entry.Time,
	}

	attributes := make(map[string]string, len(enc.Fields))
	for k, v := range enc.Fields {
		attributes[k] = fmt.Sprint(v)
	}
	if b.cfg.IncludeTraceContext {
		record.TraceID = attributes[TraceIDKey]
		record.SpanID = attributes[SpanIDKey]
		delete(attributes, TraceIDKey)
		delete(attributes, SpanIDKey)
	}
	if len(attributes) > 0 {
		record.Attributes = attributes
	}

	b.sink.ExportLog(record)
	return nil
}

// Sync implements zapcore.Core. The exporter owns flushing.
func (b *Bridge) Sync() error {
	return nil
}

func severityText(level zapcore.Level) string {
	switch level {
	case zapcore.DebugLevel:
		return "DEBUG"
	case zapcore.InfoLevel:
		return "INFO"
	case zapcore.WarnLevel:
		return "WARN"
	case zapcore.ErrorLevel:
		return "ERROR"
	case zapcore.FatalLevel, zapcore.PanicLevel, zapcore.DPanicLevel:
		return "FATAL"
	default:
		return "INFO"
	}
}

// LoggerConfig defines construction of the host-facing zap logger.
type LoggerConfig struct {
	Level       string
	Development bool
	OutputPaths []string
}

// NewLogger builds a zap logger, optionally teeing every entry through the
// forwarding bridge. A nil bridge yields a plain logger.
func NewLogger(cfg LoggerConfig, bridge *Bridge) (*zap.Logger, error) {
	if len(cfg.OutputPaths) == 0 {
		cfg.OutputPaths = []string{"stdout"}
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		level = zapcore.InfoLevel
	}

	encoding := "json"
	if cfg.Development {
		encoding = "console"
	}

	zapCfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Development,
		Encoding:          encoding,
		EncoderConfig:     encoderConfig(cfg.Development),
		OutputPaths:       cfg.OutputPaths,
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: !cfg.Development,
	}

	opts := []zap.Option{}
	if bridge != nil {
		opts = append(opts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, bridge)
		}))
	}

	logger, err := zapCfg.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("logs: build logger: %w", err)
	}
	return logger, nil
}

// NewNopLogger returns a logger that discards everything. Used when the SDK
// is disabled.
func NewNopLogger() *zap.Logger {
	return zap.NewNop()
}

func encoderConfig(development bool) zapcore.EncoderConfig {
	if development {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}
