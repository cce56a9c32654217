package middleware

import (
	"context"
	"net/url"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/pulsewatch/pulsewatch-go/trace"
)

type clientSpanKey struct{}

type clientSpan struct {
	cell *trace.Cell
	sc   *trace.SpanContext
}

// InstrumentClient attaches resty hooks that open a CLIENT span per outbound
// request and inject a traceparent header. The span joins the trace carried
// by the request context; requests without one start a fresh trace.
func InstrumentClient(client *resty.Client, tracer *trace.Tracer, propagate bool) *resty.Client {
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		cell := trace.FromContext(req.Context())
		if cell == nil {
			cell = trace.NewCell()
		}

		sc := tracer.StartSpan(cell, req.Method+" "+requestPath(req.URL), trace.KindClient)
		if sc == nil {
			return nil
		}

		if propagate {
			req.SetHeader(TraceparentHeader, trace.FormatTraceparent(sc))
		}
		req.SetContext(contextWithClientSpan(req, cell, sc))
		return nil
	})

	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		span, ok := clientSpanFrom(resp.Request)
		if !ok {
			return nil
		}
		status := trace.StatusOK
		if resp.StatusCode() >= 400 {
			status = trace.StatusError
		}
		tracer.EndSpan(span.cell, span.sc, status, map[string]string{
			"http.method":      resp.Request.Method,
			"http.url":         resp.Request.URL,
			"http.status_code": strconv.Itoa(resp.StatusCode()),
		})
		return nil
	})

	client.OnError(func(req *resty.Request, err error) {
		span, ok := clientSpanFrom(req)
		if !ok {
			return
		}
		tracer.EndSpan(span.cell, span.sc, trace.StatusError, map[string]string{
			"http.method":   req.Method,
			"http.url":      req.URL,
			"error.message": err.Error(),
		})
	})

	return client
}

func requestPath(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return normalizePath(u.Path)
	}
	return raw
}

func contextWithClientSpan(req *resty.Request, cell *trace.Cell, sc *trace.SpanContext) context.Context {
	return context.WithValue(req.Context(), clientSpanKey{}, clientSpan{cell: cell, sc: sc})
}

func clientSpanFrom(req *resty.Request) (clientSpan, bool) {
	span, ok := req.Context().Value(clientSpanKey{}).(clientSpan)
	return span, ok
}
