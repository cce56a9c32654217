package export

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransportSend(t *testing.T) {
	var gotPath, gotContentType, gotRequestID string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotRequestID = r.Header.Get("X-Request-ID")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := NewHTTPTransport(TransportConfig{
		Endpoint: server.URL,
		Timeout:  2 * time.Second,
	})

	err := transport.Send(context.Background(), "/v1/traces", []byte(`{"resourceSpans":[]}`))
	require.NoError(t, err)

	assert.Equal(t, "/v1/traces", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.NotEmpty(t, gotRequestID)
	assert.JSONEq(t, `{"resourceSpans":[]}`, string(gotBody))
}

func TestHTTPTransportGzip(t *testing.T) {
	var gotEncoding string
	var decoded []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEncoding = r.Header.Get("Content-Encoding")
		reader, err := gzip.NewReader(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		decoded, _ = io.ReadAll(reader)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := NewHTTPTransport(TransportConfig{
		Endpoint:    server.URL,
		Timeout:     2 * time.Second,
		Compression: true,
	})

	err := transport.Send(context.Background(), "/v1/logs", []byte(`{"resourceLogs":[]}`))
	require.NoError(t, err)

	assert.Equal(t, "gzip", gotEncoding)
	assert.JSONEq(t, `{"resourceLogs":[]}`, string(decoded))
}

func TestHTTPTransportErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	transport := NewHTTPTransport(TransportConfig{
		Endpoint: server.URL,
		Timeout:  2 * time.Second,
	})

	err := transport.Send(context.Background(), "/v1/metrics", []byte(`{}`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "http 400")
}

func TestHTTPTransportRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := NewHTTPTransport(TransportConfig{
		Endpoint: server.URL,
		Timeout:  10 * time.Second,
	})

	err := transport.Send(context.Background(), "/v1/traces", []byte(`{}`))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, hits.Load(), int32(2))
}

func TestHTTPTransportUnreachableBackend(t *testing.T) {
	transport := NewHTTPTransport(TransportConfig{
		Endpoint: "http://127.0.0.1:1",
		Timeout:  500 * time.Millisecond,
	})

	err := transport.Send(context.Background(), "/v1/traces", []byte(`{}`))
	assert.Error(t, err)
}
