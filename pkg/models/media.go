package models

import "time"

// QueueItem is one entry of a download queue in Radarr or Sonarr
type QueueItem struct {
	ID       int64
	Title    string  // Movie or "Series - S01E02" title
	Release  string  // Release name as reported by the download client
	Status   string  // e.g. downloading, completed, warning
	Progress float64 // 0-100
	TimeLeft string
	Protocol string // torrent or usenet
	Client   string
	Messages []string
}

// WantedEpisode is a monitored episode that has aired and is missing
type WantedEpisode struct {
	ID            int64
	SeriesTitle   string
	SeasonNumber  int
	EpisodeNumber int
	Title         string
	AirDate       time.Time
}

// CatalogItem is a lookup result that can be added to a library manager
type CatalogItem struct {
	Title      string
	Year       int
	ExternalID int64 // TMDB id for movies, TVDB id for series
	Overview   string
	InLibrary  bool
	Seasons    int
	Raw        map[string]any // Original lookup payload, echoed back on add
}

// QualityProfile is a library manager quality profile
type QualityProfile struct {
	ID   int64
	Name string
}

// RootFolder is a library manager root folder
type RootFolder struct {
	ID        int64
	Path      string
	FreeSpace int64
}

// Tag is a library manager tag
type Tag struct {
	ID    int64
	Label string
}

// AddOptions is the customization sheet submitted with an add request
type AddOptions struct {
	ProfileID  int64
	RootFolder string
	Monitor    string
	Tags       []int64
	SearchNow  bool
}

// Library is a Plex library section
type Library struct {
	Key   string
	Title string
	Type  string // movie, show, artist, photo
	Count int
}

// PlexSession is an active playback session
type PlexSession struct {
	ID       string
	User     string
	Title    string
	Player   string
	State    string
	Progress float64 // 0-100
}

// PlexItem is a Plex metadata item (movie, show, season or episode)
type PlexItem struct {
	RatingKey   string
	Title       string
	Type        string
	Year        int
	ParentTitle string
	ShowTitle   string
	Index       int
	Summary     string
	Duration    time.Duration
	AddedAt     time.Time
	LeafCount   int
}

// ServerInfo describes the Plex server
type ServerInfo struct {
	Name      string
	Version   string
	Platform  string
	Sessions  int
	Transcode int
}
