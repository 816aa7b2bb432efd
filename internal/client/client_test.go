package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JKamsker/ztnet-cli/internal/cliutil"
)

func testUI() UI {
	return UI{Quiet: true, Profile: "test"}
}

func newTestClient(t *testing.T, baseURL string, retries int) *Client {
	t.Helper()
	c, err := New(baseURL, "secret-token", 5*time.Second, retries, false, testUI())
	require.NoError(t, err)
	return c
}

func TestRequestJSONSendsAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("x-ztnet-auth")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	value, err := c.RequestJSON(context.Background(), http.MethodGet, "/api/v1/network", nil, nil, true)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", gotAuth)
	assert.Equal(t, map[string]any{"ok": true}, value)
}

func TestRequestJSONMissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the server without a token")
	}))
	defer srv.Close()

	c, err := New(srv.URL, "", 5*time.Second, 0, false, testUI())
	require.NoError(t, err)

	_, err = c.RequestJSON(context.Background(), http.MethodGet, "/api/v1/network", nil, nil, true)
	var missing *cliutil.MissingConfigError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "token", missing.Field)
}

func TestBaseFallbackOn404(t *testing.T) {
	var primaryHits, altHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/network":
			primaryHits.Add(1)
			http.NotFound(w, r)
		case "/api/api/v1/network":
			altHits.Add(1)
			w.Write([]byte(`["net"]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)

	value, err := c.RequestJSON(context.Background(), http.MethodGet, "/api/v1/network", nil, nil, true)
	require.NoError(t, err)
	assert.Equal(t, []any{"net"}, value)
	assert.Equal(t, int32(1), primaryHits.Load())
	assert.Equal(t, int32(1), altHits.Load())

	// The alternate base sticks: later requests skip the failing primary.
	_, err = c.RequestJSON(context.Background(), http.MethodGet, "/api/v1/network", nil, nil, true)
	require.NoError(t, err)
	assert.Equal(t, int32(1), primaryHits.Load())
	assert.Equal(t, int32(2), altHits.Load())
}

func TestBaseFallbackNotTriggeredByAuthError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)

	_, err := c.RequestJSON(context.Background(), http.MethodGet, "/api/v1/network", nil, nil, true)
	var statusErr *cliutil.HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Status)
	assert.Equal(t, int32(1), hits.Load(), "401 must not probe alternate bases")
}

func TestBaseFallbackReturnsOriginalError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/network":
			http.NotFound(w, r)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)

	_, err := c.RequestJSON(context.Background(), http.MethodGet, "/api/v1/network", nil, nil, true)
	var statusErr *cliutil.HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Status, "original base's error wins when no alternate succeeds")
}

func TestRetryOn5xx(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)

	value, err := c.RequestJSON(context.Background(), http.MethodGet, "/api/v1/stats", nil, nil, true)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, value)
	assert.Equal(t, int32(3), hits.Load())
}

func TestRetryHonorsRetryAfterOn429(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)

	start := time.Now()
	_, err := c.RequestJSON(context.Background(), http.MethodGet, "/api/v1/stats", nil, nil, true)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
	assert.Equal(t, int32(2), hits.Load())
}

func TestExhausted429IsRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)

	_, err := c.RequestJSON(context.Background(), http.MethodGet, "/api/v1/stats", nil, nil, true)
	var rateLimited *cliutil.RateLimitedError
	assert.ErrorAs(t, err, &rateLimited)
}

func TestAbsoluteURLBypassesBases(t *testing.T) {
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"from":"other"}`))
	}))
	defer other.Close()

	c := newTestClient(t, "https://configured.example.com", 0)

	value, err := c.RequestJSON(context.Background(), http.MethodGet, other.URL+"/anything", nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"from": "other"}, value)
}

func TestDryRunDoesNotSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("dry-run must not hit the server")
	}))
	defer srv.Close()

	c, err := New(srv.URL, "secret-token", 5*time.Second, 0, true, testUI())
	require.NoError(t, err)

	_, err = c.RequestJSON(context.Background(), http.MethodPost, "/api/v1/network", map[string]any{"name": "x"}, nil, true)
	assert.True(t, errors.Is(err, cliutil.ErrDryRunPrinted))
}

func TestParseRetryAfter(t *testing.T) {
	d, ok := parseRetryAfter("2")
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, d)

	_, ok = parseRetryAfter("")
	assert.False(t, ok)
	_, ok = parseRetryAfter("soon")
	assert.False(t, ok)
	_, ok = parseRetryAfter("-1")
	assert.False(t, ok)
}

func TestRetryBackoffDoublesAndCaps(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, retryBackoff(retryWaitMin, retryWaitMax, 0, nil))
	assert.Equal(t, 400*time.Millisecond, retryBackoff(retryWaitMin, retryWaitMax, 1, nil))
	assert.Equal(t, 800*time.Millisecond, retryBackoff(retryWaitMin, retryWaitMax, 2, nil))
	assert.Equal(t, retryWaitMax, retryBackoff(retryWaitMin, retryWaitMax, 10, nil))
}

func TestRequestBytesSetsContentTypeForEmptyBody(t *testing.T) {
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)

	_, err := c.RequestBytes(context.Background(), http.MethodPost, "/api/v1/network", []byte{}, nil, true, "application/json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", gotContentType)
}

// captureStderr swaps os.Stderr for a pipe around fn and returns what fn
// wrote to it.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stderr
	os.Stderr = w
	defer func() { os.Stderr = orig }()

	fn()

	require.NoError(t, w.Close())
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestAutofixBannerPrintedOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/network":
			http.NotFound(w, r)
		case "/api/api/v1/network":
			w.Write([]byte(`["net"]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL, "secret-token", 5*time.Second, 0, false, UI{NoColor: true, Profile: "prod"})
	require.NoError(t, err)

	stderr := captureStderr(t, func() {
		for i := 0; i < 3; i++ {
			_, err := c.RequestJSON(context.Background(), http.MethodGet, "/api/v1/network", nil, nil, true)
			require.NoError(t, err)
		}
	})

	assert.Equal(t, 1, strings.Count(stderr, "HOST AUTO-FIX"), "banner prints once per client, not per call")
	assert.Contains(t, stderr, "ztnet --profile prod config set host "+srv.URL+"/api")
}

func TestAutofixBannerSuppressedByQuiet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/network" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)

	stderr := captureStderr(t, func() {
		_, err := c.RequestJSON(context.Background(), http.MethodGet, "/api/v1/network", nil, nil, true)
		require.NoError(t, err)
	})
	assert.Empty(t, stderr)
}
