/*
Package middleware instruments HTTP servers and clients.

Tracing is gin middleware that opens a SERVER span for each request,
honors inbound traceparent headers, echoes the active span context back
to the caller, and feeds per-endpoint request metrics to the collector.
Span names use the matched route pattern so path parameters do not blow
up cardinality; unmatched paths have identifier segments collapsed to
{id}.

InstrumentClient does the same for outbound resty requests: a CLIENT
span per call, traceparent injection, and ERROR status on transport
failures or 4xx/5xx responses.
*/
package middleware
