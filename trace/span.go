package trace

import (
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// Kind classifies the role a span plays in a trace.
type Kind string

const (
	KindInternal Kind = "INTERNAL"
	KindServer   Kind = "SERVER"
	KindClient   Kind = "CLIENT"
	KindProducer Kind = "PRODUCER"
	KindConsumer Kind = "CONSUMER"
)

// Status is the terminal outcome of a span.
type Status string

const (
	StatusOK    Status = "OK"
	StatusError Status = "ERROR"
)

// SpanContext identifies one in-flight or propagated operation. It is
// immutable after creation; ending a span discards it.
type SpanContext struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
}

// SpanRecord is a finalized span. Once enqueued it is owned solely by the
// exporter.
type SpanRecord struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
	Operation    string
	Service      string
	Kind         Kind
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	Status       Status
	Attributes   map[string]string
}

// SpanSink receives finalized spans. The exporter implements it.
type SpanSink interface {
	ExportSpan(record SpanRecord)
}

// NewTraceID returns a random 128-bit trace identifier as 32 hex characters.
func NewTraceID() string {
	var b [16]byte
	fillRandom(b[:])
	return hex.EncodeToString(b[:])
}

// NewSpanID returns a random 64-bit span identifier as 16 hex characters.
func NewSpanID() string {
	var b [8]byte
	fillRandom(b[:])
	return hex.EncodeToString(b[:])
}

// fillRandom fills b from the process-wide PRNG. Identifier generation does
// not need cryptographic randomness, only collision resistance within a
// process's traffic.
func fillRandom(b []byte) {
	for i := 0; i < len(b); i += 8 {
		v := rand.Uint64()
		for j := i; j < len(b) && j < i+8; j++ {
			b[j] = byte(v)
			v >>= 8
		}
	}
}

const traceparentVersion = "00"

// FormatTraceparent encodes a span context as a W3C-style
// version-traceId-spanId-flags token for outbound propagation.
func FormatTraceparent(sc *SpanContext) string {
	return fmt.Sprintf("%s-%s-%s-01", traceparentVersion, sc.TraceID, sc.SpanID)
}

// ParseTraceparent extracts the trace and span identifiers from an inbound
// traceparent header. Identifiers are lowercased so every context in the
// process carries canonical hex. The returned context carries no parent:
// the remote span becomes the local parent via the current-context cell.
func ParseTraceparent(header string) (*SpanContext, bool) {
	parts := strings.Split(header, "-")
	if len(parts) < 3 {
		return nil, false
	}
	traceID := strings.ToLower(parts[1])
	spanID := strings.ToLower(parts[2])
	if len(traceID) != 32 || len(spanID) != 16 {
		return nil, false
	}
	if !isHex(traceID) || !isHex(spanID) {
		return nil, false
	}
	return &SpanContext{TraceID: traceID, SpanID: spanID}, true
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}
