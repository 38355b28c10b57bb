package models

// PowerAction is a destructive host action that needs confirmation
type PowerAction string

const (
	ActionShutdown PowerAction = "shutdown"
	ActionRestart  PowerAction = "restart"
)

// MediaKey is a host media control
type MediaKey string

const (
	KeyPlayPause  MediaKey = "playpause"
	KeyNext       MediaKey = "next"
	KeyPrevious   MediaKey = "prev"
	KeyVolumeUp   MediaKey = "volup"
	KeyVolumeDown MediaKey = "voldown"
	KeyMute       MediaKey = "mute"
)

// IsVolume reports whether the key needs a volume backend
func (k MediaKey) IsVolume() bool {
	return k == KeyVolumeUp || k == KeyVolumeDown || k == KeyMute
}

// FlowKind identifies a conversational flow waiting for free text
type FlowKind string

const (
	FlowAddMovie    FlowKind = "add_movie"
	FlowAddShow     FlowKind = "add_show"
	FlowAddDownload FlowKind = "add_download"
	FlowPlexSearch  FlowKind = "plex_search"
)

// Service names used for feature gating and error reporting
const (
	ServiceRadarr = "radarr"
	ServiceSonarr = "sonarr"
	ServicePlex   = "plex"
	ServicePower  = "power"
	ServiceMedia  = "media"
)
