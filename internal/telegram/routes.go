package telegram

import (
	"context"
	"maps"
	"slices"

	"github.com/hryarih32/mediacatalogbot/internal/flow"
	"github.com/hryarih32/mediacatalogbot/internal/formatter"
	"github.com/hryarih32/mediacatalogbot/internal/pager"
	"github.com/hryarih32/mediacatalogbot/internal/router"
	"github.com/hryarih32/mediacatalogbot/internal/surface"
	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

// listFunc renders one page of a paginated surface. origin identifies the
// list within the surface, e.g. the library being browsed. It returns the
// menu content and the page number actually shown.
type listFunc func(ctx context.Context, chatID int64, origin string, page int, refresh bool) (*surface.Content, int, error)

// registerRoutes builds the callback table. Order matters: the first
// matching route wins.
func (b *Bot) registerRoutes() {
	r := b.router
	radarr := router.Requires(models.ServiceRadarr)
	sonarr := router.Requires(models.ServiceSonarr)
	plex := router.Requires(models.ServicePlex)

	r.Exact(models.CallbackMainMenu, b.onMainMenu)
	r.Exact(models.CallbackNoop, func(context.Context, router.Request) error { return nil })
	r.Exact(models.CallbackFlowCancel, b.onFlowCancel)

	r.Exact(models.CallbackRadarrMenu, b.onServiceMenu(models.ServiceRadarr), radarr)
	r.Exact(models.CallbackRadarrQueue, b.onOpenList(models.SurfaceRadarrQueue), radarr)
	r.Exact(models.CallbackRadarrRescan, b.onCommand(models.ServiceRadarr, "rescan"), radarr)
	r.Exact(models.CallbackRadarrRename, b.onCommand(models.ServiceRadarr, "rename"), radarr)
	r.Exact(models.CallbackRadarrRefresh, b.onCommand(models.ServiceRadarr, "refresh"), radarr)
	r.Exact(models.CallbackRadarrAdd, b.onArm(models.FlowAddMovie), radarr)
	r.Prefix(models.PrefixRadarrQueueItem, b.onQueueItem(models.ServiceRadarr), radarr)
	r.Prefix(models.PrefixRadarrQueueRemove, b.onQueueRemove(models.ServiceRadarr, false), radarr)
	r.Prefix(models.PrefixRadarrQueueBlock, b.onQueueRemove(models.ServiceRadarr, true), radarr)

	r.Exact(models.CallbackSonarrMenu, b.onServiceMenu(models.ServiceSonarr), sonarr)
	r.Exact(models.CallbackSonarrQueue, b.onOpenList(models.SurfaceSonarrQueue), sonarr)
	r.Exact(models.CallbackSonarrWanted, b.onOpenList(models.SurfaceSonarrWanted), sonarr)
	r.Exact(models.CallbackSonarrRescan, b.onCommand(models.ServiceSonarr, "rescan"), sonarr)
	r.Exact(models.CallbackSonarrRename, b.onCommand(models.ServiceSonarr, "rename"), sonarr)
	r.Exact(models.CallbackSonarrRefresh, b.onCommand(models.ServiceSonarr, "refresh"), sonarr)
	r.Exact(models.CallbackSonarrAdd, b.onArm(models.FlowAddShow), sonarr)
	r.Prefix(models.PrefixSonarrQueueItem, b.onQueueItem(models.ServiceSonarr), sonarr)
	r.Prefix(models.PrefixSonarrQueueRemove, b.onQueueRemove(models.ServiceSonarr, false), sonarr)
	r.Prefix(models.PrefixSonarrQueueBlock, b.onQueueRemove(models.ServiceSonarr, true), sonarr)
	r.Prefix(models.PrefixSonarrWantedItem, b.onEpisodeSearch, sonarr)

	r.Exact(models.CallbackDownloadAdd, b.onArm(models.FlowAddDownload))
	r.Exact(models.CallbackDownloadTarget, b.onDownloadTarget)
	r.Prefix(models.PrefixCatalogPick, b.onPick)
	r.Prefix(models.PrefixSheetField, b.onSheetField)
	r.Prefix(models.PrefixSheetTag, b.onSheetTag)
	r.Prefix(models.PrefixSheetSubmit, b.onSheetSubmit)

	r.Exact(models.CallbackPlexMenu, b.onServiceMenu(models.ServicePlex), plex)
	r.Exact(models.CallbackPlexLibraries, b.onPlexLibraries, plex)
	r.Exact(models.CallbackPlexSessions, b.onOpenList(models.SurfacePlexSessions), plex)
	r.Exact(models.CallbackPlexRecent, b.onOpenList(models.SurfacePlexRecent), plex)
	r.Exact(models.CallbackPlexSearch, b.onArm(models.FlowPlexSearch), plex)
	r.Exact(models.CallbackPlexInfo, b.onPlexInfo, plex)
	r.Exact(models.CallbackPlexBundles, b.onPlexMaintenance("bundles"), plex)
	r.Exact(models.CallbackPlexOptimize, b.onPlexMaintenance("optimize"), plex)
	r.Prefix(models.PrefixPlexLibrary, b.onPlexLibrary, plex)
	r.Prefix(models.PrefixPlexScan, b.onPlexLibraryAction("scan"), plex)
	r.Prefix(models.PrefixPlexMeta, b.onPlexLibraryAction("refresh"), plex)
	r.Prefix(models.PrefixPlexTrash, b.onPlexLibraryAction("trash"), plex)
	r.Prefix(models.PrefixPlexBrowse, b.onOpenListAt(models.SurfacePlexLibrary), plex)
	r.Prefix(models.PrefixPlexShow, b.onOpenListAt(models.SurfacePlexSeasons), plex)
	r.Prefix(models.PrefixPlexSeason, b.onOpenListAt(models.SurfacePlexEpisodes), plex)
	r.Prefix(models.PrefixPlexItem, b.onPlexItem, plex)
	r.Prefix(models.PrefixPlexRefresh, b.onPlexRefreshItem, plex)
	r.Prefix(models.PrefixPlexStop, b.onPlexStop, plex)

	// Shutdown, restart and the menu before the media key prefix
	r.Exact(models.CallbackPCMenu, b.onPCMenu)
	r.Exact(models.CallbackPCShutdown, b.onPower(models.ActionShutdown), router.Requires(models.ServicePower))
	r.Exact(models.CallbackPCRestart, b.onPower(models.ActionRestart), router.Requires(models.ServicePower))
	r.Prefix(models.PrefixPC, b.onMediaKey, router.Requires(models.ServiceMedia))

	r.Exact(models.CallbackSettingsMenu, b.onSettings)
	r.Exact(models.CallbackSettingsReload, b.onSettingsReload)

	for _, name := range slices.Sorted(maps.Keys(b.lists)) {
		r.Prefix(models.PagePrefix(name), b.onPage(name, false), router.Requires(listService(name)))
		r.Prefix(models.RefreshPrefix(name), b.onPage(name, true), router.Requires(listService(name)))
	}
}

// registerLists maps every paginated surface to its renderer
func (b *Bot) registerLists() {
	b.lists = map[string]listFunc{
		models.SurfaceRadarrQueue:    b.queueList(models.ServiceRadarr),
		models.SurfaceSonarrQueue:    b.queueList(models.ServiceSonarr),
		models.SurfaceSonarrWanted:   b.wantedList,
		models.SurfaceCatalogResults: b.resultsList,
		models.SurfacePlexLibrary:    b.plexList(models.SurfacePlexLibrary),
		models.SurfacePlexSeasons:    b.plexList(models.SurfacePlexSeasons),
		models.SurfacePlexEpisodes:   b.plexList(models.SurfacePlexEpisodes),
		models.SurfacePlexRecent:     b.plexList(models.SurfacePlexRecent),
		models.SurfacePlexSearch:     b.plexList(models.SurfacePlexSearch),
		models.SurfacePlexSessions:   b.sessionsList,
	}
}

// listService is the feature a paginated surface depends on. Catalog
// results may come from either manager, so they are not gated.
func listService(name string) string {
	switch name {
	case models.SurfaceRadarrQueue:
		return models.ServiceRadarr
	case models.SurfaceSonarrQueue, models.SurfaceSonarrWanted:
		return models.ServiceSonarr
	case models.SurfaceCatalogResults:
		return ""
	}
	return models.ServicePlex
}

// openList renders page of a list on the menu slot, with an optional
// status, and remembers it as the chat's selection
func (b *Bot) openList(ctx context.Context, chatID int64, name, origin string, page int, refresh bool, status *surface.Content) error {
	menu, number, err := b.lists[name](ctx, chatID, origin, page, refresh)
	if err != nil {
		return err
	}
	b.flow.SetSelection(chatID, flow.Selection{Surface: name, Origin: origin, Page: number})
	return b.show(ctx, chatID, menu, status)
}

// selection returns the chat's position in list name, if it is there
func (b *Bot) selection(chatID int64, name string) (flow.Selection, bool) {
	sel, ok := b.flow.Selection(chatID)
	if !ok || sel.Surface != name {
		return flow.Selection{}, false
	}
	return sel, true
}

// onOpenList opens a list without origin on its first page, reloaded
func (b *Bot) onOpenList(name string) router.Handler {
	return func(ctx context.Context, req router.Request) error {
		return b.openList(ctx, req.ChatID, name, "", 1, true, nil)
	}
}

// onOpenListAt opens a list whose origin is the token payload
func (b *Bot) onOpenListAt(name string) router.Handler {
	return func(ctx context.Context, req router.Request) error {
		return b.openList(ctx, req.ChatID, name, req.Payload, 1, true, nil)
	}
}

// onPage handles the navigation and refresh buttons of a list
func (b *Bot) onPage(name string, refresh bool) router.Handler {
	return func(ctx context.Context, req router.Request) error {
		origin := ""
		if sel, ok := b.selection(req.ChatID, name); ok {
			origin = sel.Origin
		} else if needsOrigin(name) {
			return expired("page", "This list is no longer open.")
		}
		return b.openList(ctx, req.ChatID, name, origin, pager.ParsePage(req.Payload), refresh, nil)
	}
}

func needsOrigin(name string) bool {
	switch name {
	case models.SurfacePlexLibrary, models.SurfacePlexSeasons, models.SurfacePlexEpisodes,
		models.SurfacePlexSearch, models.SurfaceCatalogResults:
		return true
	}
	return false
}

func (b *Bot) onMainMenu(ctx context.Context, req router.Request) error {
	return b.showMainMenu(ctx, req.ChatID, false, nil)
}

func (b *Bot) onFlowCancel(ctx context.Context, req router.Request) error {
	return b.showMainMenu(ctx, req.ChatID, false, html(formatter.FlowCancelled, nil))
}

func (b *Bot) onSettings(ctx context.Context, req router.Request) error {
	return b.showMenu(ctx, req.ChatID, b.settingsScreen())
}

// onSettingsReload re-reads the env file; reload hooks apply the values
func (b *Bot) onSettingsReload(ctx context.Context, req router.Request) error {
	if _, err := b.config.Reload(); err != nil {
		return b.show(ctx, req.ChatID, b.settingsScreen(), html(rejectedText("settings", err.Error()), nil))
	}
	return b.show(ctx, req.ChatID, b.settingsScreen(), html(formatter.SettingsLoaded, nil))
}
