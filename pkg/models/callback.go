package models

import (
	"regexp"
	"strconv"
)

// PayloadPattern restricts the payload part of prefixed callback tokens
var PayloadPattern = regexp.MustCompile(`^[0-9A-Za-z_.\-]+$`)

// Exact callback tokens
const (
	CallbackMainMenu   = "main_menu"
	CallbackNoop       = "noop"
	CallbackFlowCancel = "flow_cancel"

	CallbackRadarrMenu    = "radarr_menu"
	CallbackRadarrQueue   = "radarr_queue"
	CallbackRadarrRescan  = "radarr_rescan"
	CallbackRadarrRename  = "radarr_rename"
	CallbackRadarrRefresh = "radarr_refresh"
	CallbackRadarrAdd     = "radarr_add"

	CallbackSonarrMenu    = "sonarr_menu"
	CallbackSonarrQueue   = "sonarr_queue"
	CallbackSonarrWanted  = "sonarr_wanted"
	CallbackSonarrRescan  = "sonarr_rescan"
	CallbackSonarrRename  = "sonarr_rename"
	CallbackSonarrRefresh = "sonarr_refresh"
	CallbackSonarrAdd     = "sonarr_add"

	CallbackDownloadAdd    = "dl_add"
	CallbackDownloadTarget = "dl_target"

	CallbackPlexMenu      = "plex_menu"
	CallbackPlexLibraries = "plex_libraries"
	CallbackPlexSessions  = "plex_sessions"
	CallbackPlexRecent    = "plex_recent"
	CallbackPlexSearch    = "plex_search"
	CallbackPlexInfo      = "plex_info"
	CallbackPlexBundles   = "plex_bundles"
	CallbackPlexOptimize  = "plex_optimize"

	CallbackPCMenu     = "pc_menu"
	CallbackPCShutdown = "pc_shutdown"
	CallbackPCRestart  = "pc_restart"

	CallbackSettingsMenu   = "settings_menu"
	CallbackSettingsReload = "settings_reload"
)

// Prefixed callback tokens. The prefix selects the handler, the payload is an opaque key.
const (
	// PrefixPC covers host media keys; shutdown and restart are exact tokens under it
	PrefixPC = "pc_"

	PrefixRadarrQueueItem   = "rqi_"
	PrefixRadarrQueueRemove = "rqd_"
	PrefixRadarrQueueBlock  = "rqb_"

	PrefixSonarrQueueItem   = "sqi_"
	PrefixSonarrQueueRemove = "sqd_"
	PrefixSonarrQueueBlock  = "sqb_"
	PrefixSonarrWantedItem  = "swi_"

	PrefixCatalogPick = "pick_"
	PrefixSheetField  = "addf_"
	PrefixSheetTag    = "addt_"
	PrefixSheetSubmit = "addok_"

	PrefixPlexLibrary = "plib_"
	PrefixPlexScan    = "pscan_"
	PrefixPlexMeta    = "pmeta_"
	PrefixPlexTrash   = "ptrash_"
	PrefixPlexBrowse  = "pbrowse_"
	PrefixPlexItem    = "pitem_"
	PrefixPlexShow    = "pshow_"
	PrefixPlexSeason  = "pseason_"
	PrefixPlexRefresh = "prefresh_"
	PrefixPlexStop    = "pstop_"
)

// Paginated surfaces. Navigation tokens are <surface>_p_<page>, refresh is <surface>_r_<page>.
const (
	SurfaceRadarrQueue    = "rq"
	SurfaceSonarrQueue    = "sq"
	SurfaceSonarrWanted   = "sw"
	SurfaceCatalogResults = "sr"
	SurfacePlexLibrary    = "pl"
	SurfacePlexRecent     = "pr"
	SurfacePlexSearch     = "ps"
	SurfacePlexSeasons    = "pn"
	SurfacePlexEpisodes   = "pe"
	SurfacePlexSessions   = "px"
)

// PagePrefix returns the navigation prefix for a paginated surface
func PagePrefix(surface string) string {
	return surface + "_p_"
}

// RefreshPrefix returns the refresh prefix for a paginated surface
func RefreshPrefix(surface string) string {
	return surface + "_r_"
}

// PageToken builds a navigation token for a page of a surface
func PageToken(surface string, page int) string {
	return PagePrefix(surface) + strconv.Itoa(page)
}

// RefreshToken builds a refresh token that reloads a surface and stays on page
func RefreshToken(surface string, page int) string {
	return RefreshPrefix(surface) + strconv.Itoa(page)
}

// Token joins a prefix and payload
func Token(prefix string, payload string) string {
	return prefix + payload
}

// Int64Token joins a prefix and a numeric id
func Int64Token(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10)
}
