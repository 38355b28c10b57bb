// Package arr is the adapter for the Radarr and Sonarr v3 APIs. Both
// managers share one client; a Flavor carries the differences.
package arr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hryarih32/mediacatalogbot/internal/clock"
	"github.com/hryarih32/mediacatalogbot/internal/service"
	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

// ErrUnsupported is returned for verbs the flavor does not offer
var ErrUnsupported = errors.New("operation not supported by this service")

// Flavor describes the API differences between Radarr and Sonarr
type Flavor struct {
	Service       string
	ItemPath      string // library items, e.g. /api/v3/movie
	ExternalIDKey string // tmdbId or tvdbId
	QueueInclude  url.Values
	RescanCommand string
	RefreshCmd    string
	RenameCommand string
	RenameIDsKey  string
	MonitorValues []string
	Episodes      bool // supports wanted and episode search
}

// Radarr is the movie manager flavor
var Radarr = Flavor{
	Service:       models.ServiceRadarr,
	ItemPath:      "/api/v3/movie",
	ExternalIDKey: "tmdbId",
	QueueInclude:  url.Values{"includeMovie": {"true"}},
	RescanCommand: "RescanMovie",
	RefreshCmd:    "RefreshMovie",
	RenameCommand: "RenameMovie",
	RenameIDsKey:  "movieIds",
	MonitorValues: []string{"movieOnly", "movieAndCollection", "none"},
}

// Sonarr is the series manager flavor
var Sonarr = Flavor{
	Service:       models.ServiceSonarr,
	ItemPath:      "/api/v3/series",
	ExternalIDKey: "tvdbId",
	QueueInclude:  url.Values{"includeSeries": {"true"}, "includeEpisode": {"true"}},
	RescanCommand: "RescanSeries",
	RefreshCmd:    "RefreshSeries",
	RenameCommand: "RenameSeries",
	RenameIDsKey:  "seriesIds",
	MonitorValues: []string{"all", "future", "missing", "existing", "firstSeason", "latestSeason", "pilot", "none"},
	Episodes:      true,
}

// Config for an arr client
type Config struct {
	BaseURL string // e.g., http://localhost:7878
	APIKey  string
	Timeout time.Duration
	Retries int
	Clock   clock.Clock // dates pushed releases; real time when nil
}

// Client is a Radarr or Sonarr API client
type Client struct {
	flavor Flavor
	http   *service.HTTPClient
	clock  clock.Clock
}

// RemoveOptions controls what happens to a removed queue item
type RemoveOptions struct {
	Blocklist bool // blocklist the release
	Search    bool // search for a replacement release
}

// NewClient creates a new client for flavor
func NewClient(flavor Flavor, cfg Config, logger *slog.Logger) *Client {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &Client{
		flavor: flavor,
		clock:  clk,
		http: service.NewHTTPClient(service.ClientConfig{
			Service: flavor.Service,
			BaseURL: cfg.BaseURL,
			Header:  http.Header{"X-Api-Key": []string{cfg.APIKey}},
			Timeout: cfg.Timeout,
			Retries: cfg.Retries,
		}, logger),
	}
}

// Flavor returns the client's flavor
func (c *Client) Flavor() Flavor {
	return c.flavor
}

// IsConfigured returns true if the client has a base URL
func (c *Client) IsConfigured() bool {
	return c.http.Configured()
}

// Health checks that the service answers
func (c *Client) Health(ctx context.Context) error {
	var status struct {
		Version string `json:"version"`
	}
	return c.http.Probe(ctx, "/api/v3/system/status", &status)
}

// Queue returns the download queue
func (c *Client) Queue(ctx context.Context) ([]models.QueueItem, error) {
	query := url.Values{"page": {"1"}, "pageSize": {"200"}}
	for k, v := range c.flavor.QueueInclude {
		query[k] = v
	}

	var page queuePage
	if err := c.http.Do(ctx, service.Request{Op: "list queue", Path: "/api/v3/queue", Query: query, Idempotent: true}, &page); err != nil {
		return nil, err
	}

	items := make([]models.QueueItem, 0, len(page.Records))
	for _, r := range page.Records {
		items = append(items, r.toModel())
	}
	return items, nil
}

// RemoveQueueItem removes a queue item from the manager and the download
// client. Removal is not idempotent, so it is never retried.
func (c *Client) RemoveQueueItem(ctx context.Context, id int64, opts RemoveOptions) error {
	query := url.Values{
		"removeFromClient": {"true"},
		"blocklist":        {strconv.FormatBool(opts.Blocklist)},
		"skipRedownload":   {strconv.FormatBool(!opts.Search)},
	}
	return c.http.Do(ctx, service.Request{
		Op:     "remove queue item",
		Method: http.MethodDelete,
		Path:   "/api/v3/queue/" + strconv.FormatInt(id, 10),
		Query:  query,
	}, nil)
}

// Rescan rescans the library folders on disk
func (c *Client) Rescan(ctx context.Context) error {
	return c.command(ctx, "rescan", map[string]any{"name": c.flavor.RescanCommand})
}

// RefreshMetadata refreshes metadata for the whole library
func (c *Client) RefreshMetadata(ctx context.Context) error {
	return c.command(ctx, "refresh metadata", map[string]any{"name": c.flavor.RefreshCmd})
}

// Rename renames files of every library item to the naming scheme
func (c *Client) Rename(ctx context.Context) error {
	var items []struct {
		ID int64 `json:"id"`
	}
	if err := c.http.Do(ctx, service.Request{Op: "list library", Path: c.flavor.ItemPath, Idempotent: true}, &items); err != nil {
		return err
	}
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return c.command(ctx, "rename", map[string]any{
		"name":                 c.flavor.RenameCommand,
		c.flavor.RenameIDsKey: ids,
	})
}

// Wanted returns missing monitored episodes
func (c *Client) Wanted(ctx context.Context) ([]models.WantedEpisode, error) {
	if !c.flavor.Episodes {
		return nil, ErrUnsupported
	}
	query := url.Values{
		"page":          {"1"},
		"pageSize":      {"200"},
		"includeSeries": {"true"},
		"sortKey":       {"airDateUtc"},
		"sortDirection": {"descending"},
		"monitored":     {"true"},
	}

	var page wantedPage
	if err := c.http.Do(ctx, service.Request{Op: "list wanted", Path: "/api/v3/wanted/missing", Query: query, Idempotent: true}, &page); err != nil {
		return nil, err
	}

	episodes := make([]models.WantedEpisode, 0, len(page.Records))
	for _, r := range page.Records {
		episodes = append(episodes, models.WantedEpisode{
			ID:            r.ID,
			SeriesTitle:   r.Series.Title,
			SeasonNumber:  r.SeasonNumber,
			EpisodeNumber: r.EpisodeNumber,
			Title:         r.Title,
			AirDate:       r.AirDateUtc,
		})
	}
	return episodes, nil
}

// SearchEpisode starts an indexer search for one episode
func (c *Client) SearchEpisode(ctx context.Context, episodeID int64) error {
	if !c.flavor.Episodes {
		return ErrUnsupported
	}
	return c.command(ctx, "search episode", map[string]any{
		"name":       "EpisodeSearch",
		"episodeIds": []int64{episodeID},
	})
}

func (c *Client) command(ctx context.Context, op string, body map[string]any) error {
	return c.http.Do(ctx, service.Request{
		Op:         op,
		Method:     http.MethodPost,
		Path:       "/api/v3/command",
		Body:       body,
		Idempotent: true,
	}, nil)
}

// Describe returns a short error-free summary for status screens
func (c *Client) Describe(ctx context.Context) (string, error) {
	var status struct {
		AppName string `json:"appName"`
		Version string `json:"version"`
	}
	if err := c.http.Do(ctx, service.Request{Op: "status", Path: "/api/v3/system/status", Idempotent: true}, &status); err != nil {
		return "", err
	}
	name := status.AppName
	if name == "" {
		name = c.flavor.Service
	}
	return fmt.Sprintf("%s %s", name, status.Version), nil
}
