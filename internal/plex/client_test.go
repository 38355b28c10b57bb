package plex

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hryarih32/mediacatalogbot/internal/service"
	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Token: "tok", Timeout: time.Second},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLibraries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get("X-Plex-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "/library/sections", r.URL.Path)
		_, _ = w.Write([]byte(`{"MediaContainer":{"size":2,"Directory":[
			{"key":"1","title":"Movies","type":"movie"},
			{"key":"2","title":"TV Shows","type":"show"}]}}`))
	})

	libs, err := c.Libraries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Library{
		{Key: "1", Title: "Movies", Type: "movie"},
		{Key: "2", Title: "TV Shows", Type: "show"},
	}, libs)
}

func TestLibraryActions(t *testing.T) {
	type call struct{ method, path, query string }
	var calls []call
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, call{r.Method, r.URL.Path, r.URL.RawQuery})
	})
	ctx := context.Background()

	require.NoError(t, c.ScanLibrary(ctx, "1"))
	require.NoError(t, c.RefreshLibraryMetadata(ctx, "1"))
	require.NoError(t, c.EmptyTrash(ctx, "1"))
	require.NoError(t, c.CleanBundles(ctx))
	require.NoError(t, c.OptimizeDB(ctx))
	require.NoError(t, c.RefreshItem(ctx, "77"))

	assert.Equal(t, []call{
		{http.MethodGet, "/library/sections/1/refresh", ""},
		{http.MethodGet, "/library/sections/1/refresh", "force=1"},
		{http.MethodPut, "/library/sections/1/emptyTrash", ""},
		{http.MethodPut, "/library/clean/bundles", ""},
		{http.MethodPut, "/library/optimize", ""},
		{http.MethodPut, "/library/metadata/77/refresh", ""},
	}, calls)
}

func TestSessionsAndStop(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status/sessions":
			_, _ = w.Write([]byte(`{"MediaContainer":{"size":1,"Metadata":[{
				"title":"Pilot","grandparentTitle":"Dark","type":"episode",
				"duration":1000,"viewOffset":250,
				"User":{"title":"alice"},"Player":{"title":"Living Room","state":"playing"},
				"Session":{"id":"abc"}}]}}`))
		case "/status/sessions/terminate":
			assert.Equal(t, "abc", r.URL.Query().Get("sessionId"))
			assert.Equal(t, "bye", r.URL.Query().Get("reason"))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	sessions, err := c.Sessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.PlexSession{{
		ID:       "abc",
		User:     "alice",
		Title:    "Dark - Pilot",
		Player:   "Living Room",
		State:    "playing",
		Progress: 25,
	}}, sessions)

	require.NoError(t, c.StopSession(context.Background(), "abc", "bye"))
}

func TestItemsAndSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			assert.Equal(t, "heat", r.URL.Query().Get("query"))
			_, _ = w.Write([]byte(`{"MediaContainer":{"Metadata":[
				{"ratingKey":"10","title":"Heat","type":"movie","year":1995,"duration":10200000,"addedAt":1700000000}]}}`))
		case "/library/metadata/20/children":
			_, _ = w.Write([]byte(`{"MediaContainer":{"Metadata":[
				{"ratingKey":"21","title":"Season 1","type":"season","parentTitle":"Dark","index":1,"leafCount":10}]}}`))
		case "/library/metadata/404":
			_, _ = w.Write([]byte(`{"MediaContainer":{"size":0}}`))
		}
	})
	ctx := context.Background()

	found, err := c.Search(ctx, "heat")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 1995, found[0].Year)
	assert.Equal(t, 170*time.Minute, found[0].Duration)
	assert.Equal(t, int64(1700000000), found[0].AddedAt.Unix())

	seasons, err := c.Seasons(ctx, "20")
	require.NoError(t, err)
	require.Len(t, seasons, 1)
	assert.Equal(t, "Dark", seasons[0].ShowTitle)
	assert.Equal(t, 10, seasons[0].LeafCount)

	_, err = c.Item(ctx, "404")
	assert.ErrorIs(t, err, service.ErrRejected)
}

func TestServerInfo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			_, _ = w.Write([]byte(`{"MediaContainer":{"friendlyName":"nas","version":"1.40","platform":"Linux","transcoderActiveVideoSessions":1}}`))
		case "/status/sessions":
			_, _ = w.Write([]byte(`{"MediaContainer":{"size":3}}`))
		}
	})

	info, err := c.ServerInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ServerInfo{Name: "nas", Version: "1.40", Platform: "Linux", Sessions: 3, Transcode: 1}, info)
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/identity", r.URL.Path)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	assert.ErrorIs(t, c.Health(context.Background()), service.ErrUnavailable)

	unconfigured := NewClient(Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.False(t, unconfigured.IsConfigured())
	assert.ErrorIs(t, unconfigured.Health(context.Background()), service.ErrNotConfigured)
}
