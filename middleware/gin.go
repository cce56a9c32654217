package middleware

import (
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pulsewatch/pulsewatch-go/logs"
	"github.com/pulsewatch/pulsewatch-go/metric"
	"github.com/pulsewatch/pulsewatch-go/trace"
)

// TraceparentHeader carries the propagated span context.
const TraceparentHeader = "traceparent"

const loggerKey = "pulsewatch.logger"

// Options configures the server middleware.
type Options struct {
	// PropagateContext seeds the request's span context from an inbound
	// traceparent header.
	PropagateContext bool

	// IncludeHTTPMetrics records per-endpoint request metrics.
	IncludeHTTPMetrics bool

	// Logger, when set, is scoped with trace fields and made available
	// via RequestLogger.
	Logger *zap.Logger
}

var (
	uuidSegment    = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	numericSegment = regexp.MustCompile(`/\d+`)
)

// normalizePath collapses identifier segments so metrics and span names
// stay low-cardinality when no route pattern is available.
func normalizePath(path string) string {
	path = uuidSegment.ReplaceAllString(path, "{id}")
	return numericSegment.ReplaceAllString(path, "/{id}")
}

// Tracing creates gin middleware that opens a SERVER span per request,
// propagates context, and records HTTP metrics. The collector may be nil
// when metrics are disabled.
func Tracing(tracer *trace.Tracer, collector *metric.Collector, opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		cell := trace.NewCell()
		if opts.PropagateContext {
			if parent, ok := trace.ParseTraceparent(c.GetHeader(TraceparentHeader)); ok {
				cell.Set(parent)
			}
		}

		pattern := c.FullPath()
		if pattern == "" {
			pattern = normalizePath(c.Request.URL.Path)
		}
		operation := c.Request.Method + " " + pattern

		sc := tracer.StartSpan(cell, operation, trace.KindServer)

		ctx := trace.NewContext(c.Request.Context(), cell)
		c.Request = c.Request.WithContext(ctx)

		if sc != nil {
			c.Header(TraceparentHeader, trace.FormatTraceparent(sc))
			if opts.Logger != nil {
				c.Set(loggerKey, opts.Logger.With(
					zap.String(logs.TraceIDKey, sc.TraceID),
					zap.String(logs.SpanIDKey, sc.SpanID),
				))
			}
		}

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		if sc != nil {
			status := trace.StatusOK
			if statusCode >= 400 || len(c.Errors) > 0 {
				status = trace.StatusError
			}
			attributes := map[string]string{
				"http.method":      c.Request.Method,
				"http.url":         c.Request.URL.Path,
				"http.status_code": strconv.Itoa(statusCode),
			}
			if ua := c.Request.UserAgent(); ua != "" {
				attributes["http.user_agent"] = ua
			}
			tracer.EndSpan(cell, sc, status, attributes)
		}

		if collector != nil && opts.IncludeHTTPMetrics {
			collector.RecordHTTPRequest(c.Request.Method, pattern, statusCode, duration)
		}
	}
}

// RequestLogger returns the trace-scoped logger installed by Tracing, or
// fallback when the request carries none.
func RequestLogger(c *gin.Context, fallback *zap.Logger) *zap.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if logger, ok := v.(*zap.Logger); ok {
			return logger
		}
	}
	return fallback
}
