/*
Package export ships buffered telemetry to the ingestion backend.

# Overview

The exporter keeps three independent bounded buffers (spans, metrics, logs).
Producers enqueue without ever blocking; a single worker goroutine drains
batches on a periodic timer or as soon as a buffer reaches its batch
threshold, encodes them as OTLP-flavored JSON, and POSTs them to
/v1/traces, /v1/metrics and /v1/logs.

# Failure policy

  - Full buffer: the incoming item is dropped silently and counted.
  - Transport failure: the drained batch is re-enqueued behind newer
    arrivals, bounded by remaining capacity; retried data may therefore
    arrive out of original order.
  - Serialization failure: the batch is discarded and logged; retrying
    cannot help.

No failure is ever surfaced to the instrumented application. The pipeline's
own prometheus counters (see Gatherer) and logs are the only observability
into it.

# Usage

	exporter := export.New(export.Config{
		MaxBufferSize: 1000,
		BatchSize:     100,
		FlushInterval: 5 * time.Second,
		TransportConfig: export.TransportConfig{
			Endpoint: "http://collector:8080",
			Timeout:  10 * time.Second,
		},
	}, identity, logger)
	defer exporter.Shutdown(ctx)

	exporter.ExportSpan(record)
*/
package export
