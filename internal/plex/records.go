package plex

import (
	"time"

	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

type container struct {
	MediaContainer struct {
		Size                          int         `json:"size"`
		FriendlyName                  string      `json:"friendlyName"`
		Version                       string      `json:"version"`
		Platform                      string      `json:"platform"`
		TranscoderActiveVideoSessions int         `json:"transcoderActiveVideoSessions"`
		Directory                     []directory `json:"Directory"`
		Metadata                      []metadata  `json:"Metadata"`
	} `json:"MediaContainer"`
}

type directory struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type metadata struct {
	RatingKey        string `json:"ratingKey"`
	Title            string `json:"title"`
	Type             string `json:"type"`
	Year             int    `json:"year"`
	ParentTitle      string `json:"parentTitle"`
	GrandparentTitle string `json:"grandparentTitle"`
	Index            int    `json:"index"`
	Summary          string `json:"summary"`
	Duration         int64  `json:"duration"`
	ViewOffset       int64  `json:"viewOffset"`
	AddedAt          int64  `json:"addedAt"`
	LeafCount        int    `json:"leafCount"`
	User             *struct {
		Title string `json:"title"`
	} `json:"User"`
	Player *struct {
		Title   string `json:"title"`
		Product string `json:"product"`
		State   string `json:"state"`
	} `json:"Player"`
	Session *struct {
		ID string `json:"id"`
	} `json:"Session"`
}

func (m metadata) item() models.PlexItem {
	item := models.PlexItem{
		RatingKey:   m.RatingKey,
		Title:       m.Title,
		Type:        m.Type,
		Year:        m.Year,
		ParentTitle: m.ParentTitle,
		ShowTitle:   m.GrandparentTitle,
		Index:       m.Index,
		Summary:     m.Summary,
		Duration:    time.Duration(m.Duration) * time.Millisecond,
		LeafCount:   m.LeafCount,
	}
	if item.ShowTitle == "" && m.Type == "season" {
		item.ShowTitle = m.ParentTitle
	}
	if m.AddedAt > 0 {
		item.AddedAt = time.Unix(m.AddedAt, 0)
	}
	return item
}

func (m metadata) session() models.PlexSession {
	s := models.PlexSession{Title: m.Title}
	if m.GrandparentTitle != "" {
		s.Title = m.GrandparentTitle + " - " + m.Title
	}
	if m.Session != nil {
		s.ID = m.Session.ID
	}
	if m.User != nil {
		s.User = m.User.Title
	}
	if m.Player != nil {
		s.Player = m.Player.Title
		if s.Player == "" {
			s.Player = m.Player.Product
		}
		s.State = m.Player.State
	}
	if m.Duration > 0 {
		s.Progress = float64(m.ViewOffset) / float64(m.Duration) * 100
	}
	return s
}
