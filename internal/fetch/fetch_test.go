package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return NewClient(&Options{Timeout: 5 * time.Second})
}

func TestGet_Success(t *testing.T) {
	// Create test server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html><body><h1>Test</h1></body></html>"))
	}))
	defer server.Close()

	result, err := newTestClient().Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, server.URL, result.URL)
	assert.Contains(t, result.HTML, "<h1>Test</h1>")
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "text/html", result.ContentType)
}

func TestGet_InvalidURL(t *testing.T) {
	_, err := newTestClient().Get(context.Background(), "not-a-valid-url")
	require.Error(t, err)

	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "invalid URL")
}

func TestGet_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	result, err := newTestClient().Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.NotNil(t, result) // Result is returned even on error
	assert.Equal(t, http.StatusNotFound, result.StatusCode)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.True(t, fetchErr.NotFound())
	assert.False(t, fetchErr.Timeout())
	assert.Contains(t, err.Error(), "404")
}

func TestGet_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient().Get(context.Background(), server.URL)
	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.False(t, fetchErr.NotFound())
	assert.Equal(t, http.StatusBadGateway, fetchErr.StatusCode)
}

func TestGet_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(&Options{Timeout: 50 * time.Millisecond})
	_, err := client.Get(context.Background(), server.URL)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.True(t, fetchErr.Timeout())
	assert.Zero(t, fetchErr.StatusCode)
}

func TestGet_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newTestClient().Get(context.Background(), url)
	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Zero(t, fetchErr.StatusCode)
	assert.False(t, fetchErr.NotFound())
}

func TestGet_CustomHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "custom-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "en", r.Header.Get("Accept-Language"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(&Options{
		UserAgent: "custom-agent",
		Headers:   map[string]string{"Accept-Language": "en"},
	})
	_, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
}

func TestGet_RateLimited(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(&Options{Delay: 100 * time.Millisecond})

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Get(context.Background(), server.URL)
		require.NoError(t, err)
	}

	// First request is free, the next two wait one delay each.
	assert.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)
	assert.Equal(t, int32(3), hits.Load())
}

func TestGet_CancelledWhileWaiting(t *testing.T) {
	client := NewClient(&Options{Delay: time.Hour})
	require.NoError(t, client.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Get(ctx, "http://example.invalid/")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(nil)
	assert.Equal(t, DefaultTimeout, client.Timeout())
	assert.Equal(t, DefaultUserAgent, client.options.UserAgent)
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  hello   world  ", "hello world"},
		{"line1\n\n\nline2", "line1 line2"},
		{"tabs\t\there", "tabs here"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanText(tt.input))
		})
	}
}
