package trace

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Tracer manages span lifecycles: sampling, the active-span registry, and
// handing finished spans to the exporter. All methods are safe for
// concurrent use and never return an error to the instrumented caller.
type Tracer struct {
	service      string
	samplingRate float64
	enabled      bool
	sink         SpanSink
	logger       *zap.Logger

	mu     sync.Mutex
	active map[string]*pendingSpan
}

// pendingSpan accumulates state between StartSpan and EndSpan.
type pendingSpan struct {
	record SpanRecord
}

// Config configures a Tracer.
type Config struct {
	Service      string
	SamplingRate float64
	Enabled      bool
}

// New creates a tracer exporting finished spans to sink.
func New(cfg Config, sink SpanSink, logger *zap.Logger) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracer{
		service:      cfg.Service,
		samplingRate: cfg.SamplingRate,
		enabled:      cfg.Enabled,
		sink:         sink,
		logger:       logger,
		active:       make(map[string]*pendingSpan),
	}
}

// StartSpan begins a span named operation. The sampling draw is independent
// per span: a uniform value above the configured rate yields nil, and every
// caller must tolerate a nil context. The cell's occupant, if any, becomes
// the parent, and the new context takes over the cell.
func (t *Tracer) StartSpan(cell *Cell, operation string, kind Kind) *SpanContext {
	if !t.enabled {
		return nil
	}
	if rand.Float64() > t.samplingRate {
		return nil
	}
	if kind == "" {
		kind = KindInternal
	}

	var parent *SpanContext
	if cell != nil {
		parent = cell.Current()
	}

	traceID := NewTraceID()
	parentSpanID := ""
	if parent != nil {
		traceID = parent.TraceID
		parentSpanID = parent.SpanID
	}

	sc := &SpanContext{
		TraceID:      traceID,
		SpanID:       NewSpanID(),
		ParentSpanID: parentSpanID,
	}
	if cell != nil {
		cell.Set(sc)
	}

	t.mu.Lock()
	t.active[sc.SpanID] = &pendingSpan{
		record: SpanRecord{
			TraceID:      sc.TraceID,
			SpanID:       sc.SpanID,
			ParentSpanID: sc.ParentSpanID,
			Operation:    operation,
			Service:      t.service,
			Kind:         kind,
			StartTime:    time.Now(),
			Status:       StatusOK,
		},
	}
	t.mu.Unlock()

	return sc
}

// SetSpanAttribute attaches an attribute to an active span before it ends.
// Unknown span IDs are ignored.
func (t *Tracer) SetSpanAttribute(spanID, key, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pending, ok := t.active[spanID]
	if !ok {
		return
	}
	if pending.record.Attributes == nil {
		pending.record.Attributes = make(map[string]string)
	}
	pending.record.Attributes[key] = value
}

// EndSpan finalizes sc and enqueues the resulting record. A nil or already
// ended context is a no-op. The cell is restored to the ended span's
// recorded parent; deeper nesting is not unwound.
func (t *Tracer) EndSpan(cell *Cell, sc *SpanContext, status Status, attributes map[string]string) {
	if sc == nil {
		return
	}

	t.mu.Lock()
	pending, ok := t.active[sc.SpanID]
	if ok {
		delete(t.active, sc.SpanID)
	}
	t.mu.Unlock()
	if !ok {
		return
	}

	record := pending.record
	record.EndTime = time.Now()
	record.Duration = record.EndTime.Sub(record.StartTime)
	if record.Duration < 0 {
		record.Duration = 0
	}
	if status != "" {
		record.Status = status
	}
	if len(attributes) > 0 {
		if record.Attributes == nil {
			record.Attributes = make(map[string]string, len(attributes))
		}
		for k, v := range attributes {
			record.Attributes[k] = v
		}
	}

	t.sink.ExportSpan(record)

	t.logger.Debug("span completed",
		zap.String("trace_id", record.TraceID),
		zap.String("span_id", record.SpanID),
		zap.String("operation", record.Operation),
		zap.Duration("duration", record.Duration),
		zap.String("status", string(record.Status)),
	)

	if cell == nil {
		return
	}
	if sc.ParentSpanID != "" {
		cell.Set(&SpanContext{TraceID: sc.TraceID, SpanID: sc.ParentSpanID})
	} else {
		cell.Clear()
	}
}

// ActiveCount reports how many spans have started but not yet ended.
func (t *Tracer) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// Traced runs fn inside a span named operation, ending it with ERROR status
// and error attributes when fn fails. It is the explicit wrapping form of
// method-level auto-tracing: apply it at call sites that need a span.
func (t *Tracer) Traced(ctx context.Context, operation string, kind Kind, fn func(context.Context) error) error {
	cell := FromContext(ctx)
	if cell == nil {
		cell = NewCell()
		ctx = NewContext(ctx, cell)
	}

	sc := t.StartSpan(cell, operation, kind)
	err := fn(ctx)
	if err != nil {
		t.EndSpan(cell, sc, StatusError, map[string]string{
			"error.type":    fmt.Sprintf("%T", err),
			"error.message": err.Error(),
		})
		return err
	}
	t.EndSpan(cell, sc, StatusOK, nil)
	return nil
}
