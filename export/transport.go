package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/time/rate"
)

// Transport ships one encoded batch to the backend. Any status >= 400 or
// transport-level error is a flush failure.
type Transport interface {
	Send(ctx context.Context, path string, body []byte) error
}

// TransportConfig tunes the HTTP transport.
type TransportConfig struct {
	// Endpoint is the backend base URL; signal paths are appended.
	Endpoint string

	// Timeout bounds each send, including in-call retries.
	Timeout time.Duration

	// Compression gzips request bodies.
	Compression bool

	// MaxRequestsPerSecond caps outbound sends. Zero or negative means
	// unlimited.
	MaxRequestsPerSecond float64
}

// HTTPTransport posts JSON batches with bounded timeouts, jittered in-call
// retries, and optional gzip compression.
type HTTPTransport struct {
	endpoint string
	client   *resty.Client
	limiter  *rate.Limiter
	compress bool
}

// NewHTTPTransport creates the production transport.
func NewHTTPTransport(cfg TransportConfig) *HTTPTransport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	// Jittered retries inside a single flush attempt keep a recovering
	// backend from seeing synchronized retry storms; the re-enqueue path
	// is the retry across flush attempts.
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "pulsewatch-go/1.0").
		SetTransport(&retryablehttp.RoundTripper{Client: retryClient})

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.MaxRequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxRequestsPerSecond), 1)
	}

	return &HTTPTransport{
		endpoint: cfg.Endpoint,
		client:   client,
		limiter:  limiter,
		compress: cfg.Compression,
	}
}

// Send posts body to endpoint+path. Only the flush worker calls it, so
// blocking on the rate limiter never touches the instrumented request path.
func (t *HTTPTransport) Send(ctx context.Context, path string, body []byte) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("export: rate limit wait: %w", err)
	}

	req := t.client.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString())

	if t.compress {
		compressed, err := gzipBody(body)
		if err != nil {
			return fmt.Errorf("export: compress body: %w", err)
		}
		req.SetHeader("Content-Encoding", "gzip")
		req.SetBody(compressed)
	} else {
		req.SetBody(body)
	}

	resp, err := req.Post(t.endpoint + path)
	if err != nil {
		return fmt.Errorf("export: post %s: %w", path, err)
	}
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("export: post %s: http %d", path, resp.StatusCode())
	}
	return nil
}

func gzipBody(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(body); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
