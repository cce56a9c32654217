/*
Package trace provides span lifecycle management for the Pulsewatch SDK.

# Overview

This package implements lightweight distributed tracing: span creation with
probabilistic sampling, a per-execution-unit current-context cell, and
W3C-style traceparent propagation. Finished spans are handed to the exporter
and never block the instrumented request path.

# Features

  - Independent per-span sampling against a configurable rate
  - Parent/child relationships through the current-context cell
  - Active-span registry for attaching attributes before a span ends
  - traceparent encode/parse for cross-process propagation
  - Traced() wrapper for instrumenting individual operations

# Usage

	tracer := trace.New(trace.Config{
		Service:      "order-svc",
		SamplingRate: 1.0,
		Enabled:      true,
	}, exporter, logger)

	cell := trace.NewCell()
	sc := tracer.StartSpan(cell, "order.create", trace.KindInternal)
	// ... business logic ...
	tracer.EndSpan(cell, sc, trace.StatusOK, nil)

	// Wrapping an operation
	err := tracer.Traced(ctx, "payment.process", trace.KindClient,
		func(ctx context.Context) error {
			return charge(ctx, amount)
		})

# Context ownership

Every execution unit (one request handler, one background task) owns exactly
one Cell. Concurrent units never observe each other's cell. Ending a span
restores the cell to the span's recorded parent only; multi-level unwinding
of out-of-order ends is deliberately not attempted.
*/
package trace
