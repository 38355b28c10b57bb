// Package plex is the adapter for the Plex Media Server HTTP API
package plex

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hryarih32/mediacatalogbot/internal/service"
	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

// Config for the Plex client
type Config struct {
	BaseURL string // e.g., http://localhost:32400
	Token   string
	Timeout time.Duration
	Retries int
}

// Client is a Plex Media Server client
type Client struct {
	http *service.HTTPClient
}

// NewClient creates a new Plex client
func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		http: service.NewHTTPClient(service.ClientConfig{
			Service: models.ServicePlex,
			BaseURL: cfg.BaseURL,
			Header:  http.Header{"X-Plex-Token": []string{cfg.Token}},
			Timeout: cfg.Timeout,
			Retries: cfg.Retries,
		}, logger),
	}
}

// IsConfigured returns true if the client has a base URL
func (c *Client) IsConfigured() bool {
	return c.http.Configured()
}

// Health checks that the server answers
func (c *Client) Health(ctx context.Context) error {
	var resp container
	return c.http.Probe(ctx, "/identity", &resp)
}

// ServerInfo returns the server identity and activity
func (c *Client) ServerInfo(ctx context.Context) (models.ServerInfo, error) {
	var resp container
	if err := c.get(ctx, "server info", "/", nil, &resp); err != nil {
		return models.ServerInfo{}, err
	}
	mc := resp.MediaContainer
	info := models.ServerInfo{
		Name:      mc.FriendlyName,
		Version:   mc.Version,
		Platform:  mc.Platform,
		Transcode: mc.TranscoderActiveVideoSessions,
	}

	var sessions container
	if err := c.get(ctx, "list sessions", "/status/sessions", nil, &sessions); err == nil {
		info.Sessions = sessions.MediaContainer.Size
	}
	return info, nil
}

// Libraries returns the library sections
func (c *Client) Libraries(ctx context.Context) ([]models.Library, error) {
	var resp container
	if err := c.get(ctx, "list libraries", "/library/sections", nil, &resp); err != nil {
		return nil, err
	}
	libs := make([]models.Library, 0, len(resp.MediaContainer.Directory))
	for _, d := range resp.MediaContainer.Directory {
		libs = append(libs, models.Library{Key: d.Key, Title: d.Title, Type: d.Type, Count: d.Count})
	}
	return libs, nil
}

// ScanLibrary scans a library section for new files
func (c *Client) ScanLibrary(ctx context.Context, key string) error {
	return c.get(ctx, "scan library", "/library/sections/"+url.PathEscape(key)+"/refresh", nil, nil)
}

// RefreshLibraryMetadata forces a metadata refresh of a library section
func (c *Client) RefreshLibraryMetadata(ctx context.Context, key string) error {
	return c.get(ctx, "refresh library metadata", "/library/sections/"+url.PathEscape(key)+"/refresh",
		url.Values{"force": {"1"}}, nil)
}

// EmptyTrash removes deleted items from a library section
func (c *Client) EmptyTrash(ctx context.Context, key string) error {
	return c.put(ctx, "empty trash", "/library/sections/"+url.PathEscape(key)+"/emptyTrash")
}

// CleanBundles removes unused metadata bundles
func (c *Client) CleanBundles(ctx context.Context) error {
	return c.put(ctx, "clean bundles", "/library/clean/bundles")
}

// OptimizeDB optimizes the server database
func (c *Client) OptimizeDB(ctx context.Context) error {
	return c.put(ctx, "optimize database", "/library/optimize")
}

// Sessions returns the active playback sessions
func (c *Client) Sessions(ctx context.Context) ([]models.PlexSession, error) {
	var resp container
	if err := c.get(ctx, "list sessions", "/status/sessions", nil, &resp); err != nil {
		return nil, err
	}
	sessions := make([]models.PlexSession, 0, len(resp.MediaContainer.Metadata))
	for _, m := range resp.MediaContainer.Metadata {
		sessions = append(sessions, m.session())
	}
	return sessions, nil
}

// StopSession terminates a playback session with a message for the viewer.
// Termination is not idempotent, so it is never retried.
func (c *Client) StopSession(ctx context.Context, sessionID, reason string) error {
	return c.http.Do(ctx, service.Request{
		Op:    "stop session",
		Path:  "/status/sessions/terminate",
		Query: url.Values{"sessionId": {sessionID}, "reason": {reason}},
	}, nil)
}

// RecentlyAdded returns recently added items
func (c *Client) RecentlyAdded(ctx context.Context) ([]models.PlexItem, error) {
	return c.items(ctx, "recently added", "/library/recentlyAdded", nil)
}

// LibraryItems returns every top-level item of a library section
func (c *Client) LibraryItems(ctx context.Context, key string) ([]models.PlexItem, error) {
	return c.items(ctx, "list library items", "/library/sections/"+url.PathEscape(key)+"/all", nil)
}

// Seasons returns the seasons of a show
func (c *Client) Seasons(ctx context.Context, showKey string) ([]models.PlexItem, error) {
	return c.items(ctx, "list seasons", "/library/metadata/"+url.PathEscape(showKey)+"/children", nil)
}

// Episodes returns the episodes of a season
func (c *Client) Episodes(ctx context.Context, seasonKey string) ([]models.PlexItem, error) {
	return c.items(ctx, "list episodes", "/library/metadata/"+url.PathEscape(seasonKey)+"/children", nil)
}

// Search searches every library for query
func (c *Client) Search(ctx context.Context, query string) ([]models.PlexItem, error) {
	return c.items(ctx, "search", "/search", url.Values{"query": {query}})
}

// Item returns one metadata item
func (c *Client) Item(ctx context.Context, ratingKey string) (models.PlexItem, error) {
	items, err := c.items(ctx, "get item", "/library/metadata/"+url.PathEscape(ratingKey), nil)
	if err != nil {
		return models.PlexItem{}, err
	}
	if len(items) == 0 {
		return models.PlexItem{}, service.Rejected(models.ServicePlex, "get item", http.StatusNotFound, "item not found")
	}
	return items[0], nil
}

// RefreshItem refreshes the metadata of one item
func (c *Client) RefreshItem(ctx context.Context, ratingKey string) error {
	return c.put(ctx, "refresh item", "/library/metadata/"+url.PathEscape(ratingKey)+"/refresh")
}

func (c *Client) items(ctx context.Context, op, path string, query url.Values) ([]models.PlexItem, error) {
	var resp container
	if err := c.get(ctx, op, path, query, &resp); err != nil {
		return nil, err
	}
	items := make([]models.PlexItem, 0, len(resp.MediaContainer.Metadata))
	for _, m := range resp.MediaContainer.Metadata {
		items = append(items, m.item())
	}
	return items, nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	return c.http.Do(ctx, service.Request{Op: op, Path: path, Query: query, Idempotent: true}, out)
}

func (c *Client) put(ctx context.Context, op, path string) error {
	return c.http.Do(ctx, service.Request{Op: op, Method: http.MethodPut, Path: path, Idempotent: true}, nil)
}
