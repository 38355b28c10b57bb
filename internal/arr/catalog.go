package arr

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/hryarih32/mediacatalogbot/internal/service"
	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

// Lookup searches the metadata provider for term
func (c *Client) Lookup(ctx context.Context, term string) ([]models.CatalogItem, error) {
	var raw []map[string]any
	err := c.http.Do(ctx, service.Request{
		Op:         "lookup",
		Path:       c.flavor.ItemPath + "/lookup",
		Query:      url.Values{"term": {term}},
		Idempotent: true,
	}, &raw)
	if err != nil {
		return nil, err
	}

	items := make([]models.CatalogItem, 0, len(raw))
	for _, r := range raw {
		items = append(items, c.catalogItem(r))
	}
	return items, nil
}

func (c *Client) catalogItem(r map[string]any) models.CatalogItem {
	item := models.CatalogItem{
		Title:      stringField(r, "title"),
		Year:       int(numberField(r, "year")),
		ExternalID: int64(numberField(r, c.flavor.ExternalIDKey)),
		Overview:   stringField(r, "overview"),
		InLibrary:  numberField(r, "id") > 0,
		Raw:        r,
	}
	if seasons, ok := r["seasons"].([]any); ok {
		for _, s := range seasons {
			if m, ok := s.(map[string]any); ok && numberField(m, "seasonNumber") > 0 {
				item.Seasons++
			}
		}
	}
	return item
}

// Profiles returns the quality profiles
func (c *Client) Profiles(ctx context.Context) ([]models.QualityProfile, error) {
	var raw []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := c.http.Do(ctx, service.Request{Op: "list profiles", Path: "/api/v3/qualityprofile", Idempotent: true}, &raw); err != nil {
		return nil, err
	}
	profiles := make([]models.QualityProfile, 0, len(raw))
	for _, p := range raw {
		profiles = append(profiles, models.QualityProfile{ID: p.ID, Name: p.Name})
	}
	return profiles, nil
}

// RootFolders returns the configured root folders
func (c *Client) RootFolders(ctx context.Context) ([]models.RootFolder, error) {
	var raw []struct {
		ID        int64  `json:"id"`
		Path      string `json:"path"`
		FreeSpace int64  `json:"freeSpace"`
	}
	if err := c.http.Do(ctx, service.Request{Op: "list root folders", Path: "/api/v3/rootfolder", Idempotent: true}, &raw); err != nil {
		return nil, err
	}
	folders := make([]models.RootFolder, 0, len(raw))
	for _, f := range raw {
		folders = append(folders, models.RootFolder{ID: f.ID, Path: f.Path, FreeSpace: f.FreeSpace})
	}
	return folders, nil
}

// Tags returns the configured tags
func (c *Client) Tags(ctx context.Context) ([]models.Tag, error) {
	var raw []struct {
		ID    int64  `json:"id"`
		Label string `json:"label"`
	}
	if err := c.http.Do(ctx, service.Request{Op: "list tags", Path: "/api/v3/tag", Idempotent: true}, &raw); err != nil {
		return nil, err
	}
	tags := make([]models.Tag, 0, len(raw))
	for _, t := range raw {
		tags = append(tags, models.Tag{ID: t.ID, Label: t.Label})
	}
	return tags, nil
}

// MonitorOptions returns the monitor values accepted on add
func (c *Client) MonitorOptions() []string {
	return c.flavor.MonitorValues
}

// Add adds a lookup result to the library
func (c *Client) Add(ctx context.Context, item models.CatalogItem, opts models.AddOptions) error {
	if item.InLibrary {
		return service.Rejected(c.flavor.Service, "add", http.StatusConflict, "already in library")
	}

	body := maps.Clone(item.Raw)
	if body == nil {
		body = map[string]any{}
	}
	body["title"] = item.Title
	body[c.flavor.ExternalIDKey] = item.ExternalID
	body["qualityProfileId"] = opts.ProfileID
	body["rootFolderPath"] = opts.RootFolder
	body["monitored"] = opts.Monitor != "none"
	tags := opts.Tags
	if tags == nil {
		tags = []int64{}
	}
	body["tags"] = tags

	if c.flavor.Episodes {
		body["seasonFolder"] = true
		body["addOptions"] = map[string]any{
			"monitor":                  opts.Monitor,
			"searchForMissingEpisodes": opts.SearchNow,
		}
	} else {
		body["minimumAvailability"] = "released"
		body["addOptions"] = map[string]any{
			"monitor":        opts.Monitor,
			"searchForMovie": opts.SearchNow,
		}
	}

	return c.http.Do(ctx, service.Request{
		Op:     "add",
		Method: http.MethodPost,
		Path:   c.flavor.ItemPath,
		Body:   body,
	}, nil)
}

// PushRelease hands a magnet link or release URL to the manager, which
// forwards it to its download client
func (c *Client) PushRelease(ctx context.Context, link string) error {
	release, err := ReleaseFromLink(link, c.clock.Now())
	if err != nil {
		return service.Rejected(c.flavor.Service, "push release", 0, err.Error())
	}

	return c.http.Do(ctx, service.Request{
		Op:     "push release",
		Method: http.MethodPost,
		Path:   "/api/v3/release/push",
		Body:   release,
	}, nil)
}

// Release is the body of a release push
type Release struct {
	Title       string `json:"title"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	MagnetURL   string `json:"magnetUrl,omitempty"`
	Protocol    string `json:"protocol"`
	PublishDate string `json:"publishDate"`
}

// ReleaseFromLink builds a release from a magnet link or http(s) URL
func ReleaseFromLink(link string, now time.Time) (Release, error) {
	link = strings.TrimSpace(link)
	u, err := url.Parse(link)
	if err != nil {
		return Release{}, fmt.Errorf("not a link: %w", err)
	}

	release := Release{Protocol: "torrent", PublishDate: now.UTC().Format(time.RFC3339)}
	switch u.Scheme {
	case "magnet":
		release.MagnetURL = link
		release.Title = u.Query().Get("dn")
		if release.Title == "" {
			release.Title = strings.TrimPrefix(u.Query().Get("xt"), "urn:btih:")
		}
	case "http", "https":
		if u.Host == "" {
			return Release{}, fmt.Errorf("link has no host")
		}
		release.DownloadURL = link
		base := path.Base(u.Path)
		if strings.HasSuffix(strings.ToLower(base), ".nzb") {
			release.Protocol = "usenet"
		}
		release.Title = strings.TrimSuffix(strings.TrimSuffix(base, ".torrent"), ".nzb")
		if release.Title == "" || release.Title == "/" || release.Title == "." {
			release.Title = u.Host
		}
	default:
		return Release{}, fmt.Errorf("expected a magnet link or http(s) URL")
	}

	if release.Title == "" {
		return Release{}, fmt.Errorf("link has no release name")
	}
	return release, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func numberField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}
