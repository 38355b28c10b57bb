package models

// Features is the result of one availability probe. A service counts as
// available when it is configured and answered its health check.
type Features struct {
	Radarr bool
	Sonarr bool
	Plex   bool
	Power  bool // host power commands supported and enabled
	Media  bool // host media keys available and enabled
	Volume bool // volume keys have a backend
}

// Has reports whether the named feature is available
func (f Features) Has(name string) bool {
	switch name {
	case ServiceRadarr:
		return f.Radarr
	case ServiceSonarr:
		return f.Sonarr
	case ServicePlex:
		return f.Plex
	case ServicePower:
		return f.Power
	case ServiceMedia:
		return f.Media
	}
	return false
}

// AnyManager reports whether a library manager is available
func (f Features) AnyManager() bool {
	return f.Radarr || f.Sonarr
}
