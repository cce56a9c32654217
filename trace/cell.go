package trace

import (
	"context"
	"sync"
)

// Cell is the current-span-context slot owned by one execution unit. Each
// goroutine handling a request (or background task) owns exactly one cell;
// cells are never shared across units, so the mutex only guards against the
// owner racing with its own child goroutines.
type Cell struct {
	mu      sync.Mutex
	current *SpanContext
}

// NewCell returns an empty cell.
func NewCell() *Cell {
	return &Cell{}
}

// Current returns the context occupying the cell, or nil.
func (c *Cell) Current() *SpanContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Set installs sc as the current context. Used for inbound propagation and
// by the tracer when spans start and end.
func (c *Cell) Set(sc *SpanContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = sc
}

// Clear empties the cell.
func (c *Cell) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
}

type cellKey struct{}

// NewContext returns a context carrying cell, threading the execution
// unit's current-span slot through call trees.
func NewContext(ctx context.Context, cell *Cell) context.Context {
	return context.WithValue(ctx, cellKey{}, cell)
}

// FromContext returns the cell carried by ctx, or nil.
func FromContext(ctx context.Context) *Cell {
	cell, _ := ctx.Value(cellKey{}).(*Cell)
	return cell
}
