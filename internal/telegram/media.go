package telegram

import (
	"context"

	"github.com/hryarih32/mediacatalogbot/internal/formatter"
	"github.com/hryarih32/mediacatalogbot/internal/pager"
	"github.com/hryarih32/mediacatalogbot/internal/router"
	"github.com/hryarih32/mediacatalogbot/internal/surface"
	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

// stopReason is shown to the viewer of a stopped session
const stopReason = "Playback was stopped by the server admin."

// plexList renders one of the Plex item lists. origin is the library,
// show or season key, or the search term.
func (b *Bot) plexList(name string) listFunc {
	return func(ctx context.Context, chatID int64, origin string, page int, refresh bool) (*surface.Content, int, error) {
		var (
			title    string
			back     string
			provider pager.Provider[models.PlexItem]
		)
		switch name {
		case models.SurfacePlexLibrary:
			title, back = "📂 Library", models.Token(models.PrefixPlexLibrary, origin)
			provider = func(ctx context.Context) ([]models.PlexItem, error) { return b.plex.LibraryItems(ctx, origin) }
		case models.SurfacePlexSeasons:
			title, back = "📺 Seasons", models.CallbackPlexLibraries
			provider = func(ctx context.Context) ([]models.PlexItem, error) { return b.plex.Seasons(ctx, origin) }
		case models.SurfacePlexEpisodes:
			title, back = "🎞 Episodes", models.CallbackPlexLibraries
			provider = func(ctx context.Context) ([]models.PlexItem, error) { return b.plex.Episodes(ctx, origin) }
		case models.SurfacePlexRecent:
			title, back = "🆕 Recently added", models.CallbackPlexMenu
			provider = b.plex.RecentlyAdded
		default:
			title, back = "🔍 "+origin, models.CallbackPlexMenu
			provider = func(ctx context.Context) ([]models.PlexItem, error) { return b.plex.Search(ctx, origin) }
		}

		key := pager.Key{ChatID: chatID, Surface: name, Origin: origin}
		p, err := pager.For[models.PlexItem](b.pages).Load(ctx, key, provider, page, refresh)
		if err != nil {
			return nil, 0, err
		}
		return html(b.formatter.PlexItems(title, p), formatter.BuildPlexItemsKeyboard(name, back, p)), p.Number, nil
	}
}

// sessionsList renders active playback sessions
func (b *Bot) sessionsList(ctx context.Context, chatID int64, origin string, page int, refresh bool) (*surface.Content, int, error) {
	key := pager.Key{ChatID: chatID, Surface: models.SurfacePlexSessions, Origin: origin}
	p, err := pager.For[models.PlexSession](b.pages).Load(ctx, key, b.plex.Sessions, page, refresh)
	if err != nil {
		return nil, 0, err
	}
	return html(b.formatter.Sessions(p), formatter.BuildSessionsKeyboard(p)), p.Number, nil
}

func (b *Bot) onPlexLibraries(ctx context.Context, req router.Request) error {
	libs, err := b.plex.Libraries(ctx)
	if err != nil {
		return err
	}
	return b.showMenu(ctx, req.ChatID, html(b.formatter.Libraries(libs), formatter.BuildLibrariesKeyboard(libs)))
}

func (b *Bot) onPlexLibrary(ctx context.Context, req router.Request) error {
	libs, err := b.plex.Libraries(ctx)
	if err != nil {
		return err
	}
	for _, lib := range libs {
		if lib.Key == req.Payload {
			return b.showMenu(ctx, req.ChatID, html(b.formatter.Library(lib), formatter.BuildLibraryKeyboard(lib.Key)))
		}
	}
	return expired("library", "That library no longer exists.")
}

// onPlexLibraryAction runs scan, metadata refresh or empty trash on a library
func (b *Bot) onPlexLibraryAction(op string) router.Handler {
	return func(ctx context.Context, req router.Request) error {
		var err error
		done := "Library scan started."
		switch op {
		case "refresh":
			err = b.plex.RefreshLibraryMetadata(ctx, req.Payload)
			done = "Library metadata refresh started."
		case "trash":
			err = b.plex.EmptyTrash(ctx, req.Payload)
			done = "Library trash emptied."
		default:
			err = b.plex.ScanLibrary(ctx, req.Payload)
		}
		b.audit(ctx, req.ChatID, "plex_library_"+op, req.Payload, err)
		if err != nil {
			return err
		}
		return b.showStatus(ctx, req.ChatID, formatter.Done(done))
	}
}

// onPlexMaintenance runs a server wide maintenance task
func (b *Bot) onPlexMaintenance(op string) router.Handler {
	return func(ctx context.Context, req router.Request) error {
		var err error
		done := "Bundle cleanup started."
		if op == "optimize" {
			err = b.plex.OptimizeDB(ctx)
			done = "Database optimization started."
		} else {
			err = b.plex.CleanBundles(ctx)
		}
		b.audit(ctx, req.ChatID, "plex_"+op, "", err)
		if err != nil {
			return err
		}
		return b.showStatus(ctx, req.ChatID, formatter.Done(done))
	}
}

func (b *Bot) onPlexInfo(ctx context.Context, req router.Request) error {
	info, err := b.plex.ServerInfo(ctx)
	if err != nil {
		return err
	}
	return b.showMenu(ctx, req.ChatID, html(b.formatter.ServerInfo(info), formatter.BuildBackKeyboard(models.CallbackPlexMenu)))
}

// onPlexItem shows one item; back returns to the list it was opened from
func (b *Bot) onPlexItem(ctx context.Context, req router.Request) error {
	item, err := b.plex.Item(ctx, req.Payload)
	if err != nil {
		return err
	}
	back := models.CallbackPlexMenu
	if sel, ok := b.flow.Selection(req.ChatID); ok && sel.Surface != "" {
		back = models.PageToken(sel.Surface, sel.Page)
	}
	return b.showMenu(ctx, req.ChatID, html(b.formatter.PlexItem(item), formatter.BuildPlexItemKeyboard(item, back)))
}

func (b *Bot) onPlexRefreshItem(ctx context.Context, req router.Request) error {
	err := b.plex.RefreshItem(ctx, req.Payload)
	b.audit(ctx, req.ChatID, "plex_item_refresh", req.Payload, err)
	if err != nil {
		return err
	}
	return b.showStatus(ctx, req.ChatID, formatter.Done("Metadata refresh started."))
}

// onPlexStop stops a playback session and reloads the session list
func (b *Bot) onPlexStop(ctx context.Context, req router.Request) error {
	err := b.plex.StopSession(ctx, req.Payload, stopReason)
	b.audit(ctx, req.ChatID, "plex_stop_session", req.Payload, err)
	if err != nil {
		return err
	}
	page := 1
	if sel, ok := b.selection(req.ChatID, models.SurfacePlexSessions); ok {
		page = sel.Page
	}
	return b.openList(ctx, req.ChatID, models.SurfacePlexSessions, "", page, true,
		html(formatter.Done("Session stopped."), nil))
}
