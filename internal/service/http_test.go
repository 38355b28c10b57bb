package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*HTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewHTTPClient(ClientConfig{
		Service: "radarr",
		BaseURL: srv.URL + "/",
		Header:  http.Header{"X-Api-Key": []string{"secret"}},
		Timeout: time.Second,
		Retries: 2,
		Backoff: time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return c, srv
}

func TestDoDecodesJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "/api/v3/queue", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("pageSize"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"totalRecords":3}`))
	})

	var out struct {
		TotalRecords int `json:"totalRecords"`
	}
	err := c.Do(context.Background(), Request{Op: "queue", Path: "/api/v3/queue", Query: map[string][]string{"pageSize": {"50"}}, Idempotent: true}, &out)
	require.NoError(t, err)
	assert.Equal(t, 3, out.TotalRecords)
}

func TestDoRejectedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"Download <b>locked</b> by client"}`))
	})

	err := c.Do(context.Background(), Request{Op: "queue", Path: "/x", Idempotent: true}, nil)
	require.Error(t, err)
	assert.Equal(t, KindRejected, KindOf(err))
	assert.True(t, errors.Is(err, ErrRejected))
	assert.Equal(t, "Download <b>locked</b> by client", ReasonOf(err))
	assert.Equal(t, "radarr", ServiceOf(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestDoRetriesIdempotentServerErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})

	err := c.Do(context.Background(), Request{Op: "rescan", Method: http.MethodPost, Path: "/api/v3/command", Body: map[string]string{"name": "RescanMovie"}, Idempotent: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoDoesNotRetryNonIdempotent(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	err := c.Do(context.Background(), Request{Op: "remove", Method: http.MethodDelete, Path: "/api/v3/queue/1"}, nil)
	require.Error(t, err)
	assert.Equal(t, KindRetryable, KindOf(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestDoRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := c.Do(context.Background(), Request{Op: "status", Path: "/", Idempotent: true}, nil)
	assert.Equal(t, KindRetryable, KindOf(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoTimeout(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := c.Do(ctx, Request{Op: "status", Path: "/"}, nil)
	assert.Equal(t, KindTimeout, KindOf(err))
}

func TestDoNotConfigured(t *testing.T) {
	c := NewHTTPClient(ClientConfig{Service: "plex"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.False(t, c.Configured())

	err := c.Do(context.Background(), Request{Path: "/"}, nil)
	assert.Equal(t, KindNotConfigured, KindOf(err))
	assert.Equal(t, KindNotConfigured, KindOf(c.Probe(context.Background(), "/", nil)))
}

func TestProbeUnavailable(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	err := c.Probe(context.Background(), "/identity", nil)
	assert.Equal(t, KindUnavailable, KindOf(err))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindTimeout, KindOf(context.DeadlineExceeded))
	assert.Equal(t, KindRejected, KindOf(Rejected("sonarr", "add", 400, "exists")))
	assert.Equal(t, "rejected", KindRejected.String())
	assert.Contains(t, Rejected("sonarr", "add", 400, "exists").Error(), "sonarr add: rejected (status 400): exists")
}
