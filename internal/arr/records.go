package arr

import (
	"fmt"
	"time"

	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

type queuePage struct {
	TotalRecords int           `json:"totalRecords"`
	Records      []queueRecord `json:"records"`
}

type queueRecord struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	Status         string  `json:"status"`
	TrackedState   string  `json:"trackedDownloadState"`
	Size           float64 `json:"size"`
	SizeLeft       float64 `json:"sizeleft"`
	TimeLeft       string  `json:"timeleft"`
	Protocol       string  `json:"protocol"`
	DownloadClient string  `json:"downloadClient"`
	StatusMessages []struct {
		Title    string   `json:"title"`
		Messages []string `json:"messages"`
	} `json:"statusMessages"`
	Movie *struct {
		Title string `json:"title"`
		Year  int    `json:"year"`
	} `json:"movie"`
	Series *struct {
		Title string `json:"title"`
	} `json:"series"`
	Episode *struct {
		SeasonNumber  int    `json:"seasonNumber"`
		EpisodeNumber int    `json:"episodeNumber"`
		Title         string `json:"title"`
	} `json:"episode"`
}

func (r queueRecord) toModel() models.QueueItem {
	item := models.QueueItem{
		ID:       r.ID,
		Title:    r.Title,
		Release:  r.Title,
		Status:   r.Status,
		TimeLeft: r.TimeLeft,
		Protocol: r.Protocol,
		Client:   r.DownloadClient,
	}
	if r.TrackedState != "" && r.TrackedState != "downloading" {
		item.Status = r.TrackedState
	}
	if r.Size > 0 {
		item.Progress = (r.Size - r.SizeLeft) / r.Size * 100
	}
	switch {
	case r.Movie != nil && r.Movie.Title != "":
		item.Title = r.Movie.Title
		if r.Movie.Year > 0 {
			item.Title = fmt.Sprintf("%s (%d)", r.Movie.Title, r.Movie.Year)
		}
	case r.Series != nil && r.Series.Title != "":
		item.Title = r.Series.Title
		if r.Episode != nil {
			item.Title = fmt.Sprintf("%s - S%02dE%02d", r.Series.Title, r.Episode.SeasonNumber, r.Episode.EpisodeNumber)
		}
	}
	for _, m := range r.StatusMessages {
		item.Messages = append(item.Messages, m.Messages...)
	}
	return item
}

type wantedPage struct {
	TotalRecords int            `json:"totalRecords"`
	Records      []wantedRecord `json:"records"`
}

type wantedRecord struct {
	ID            int64     `json:"id"`
	SeasonNumber  int       `json:"seasonNumber"`
	EpisodeNumber int       `json:"episodeNumber"`
	Title         string    `json:"title"`
	AirDateUtc    time.Time `json:"airDateUtc"`
	Series        struct {
		Title string `json:"title"`
	} `json:"series"`
}
