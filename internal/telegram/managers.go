package telegram

import (
	"context"
	"fmt"
	"strconv"

	tgmodels "github.com/go-telegram/bot/models"

	"github.com/hryarih32/mediacatalogbot/internal/arr"
	"github.com/hryarih32/mediacatalogbot/internal/formatter"
	"github.com/hryarih32/mediacatalogbot/internal/pager"
	"github.com/hryarih32/mediacatalogbot/internal/router"
	"github.com/hryarih32/mediacatalogbot/internal/service"
	"github.com/hryarih32/mediacatalogbot/internal/surface"
	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

// managerUI holds the tokens of one library manager's screens
type managerUI struct {
	queue        string
	itemPrefix   string
	removePrefix string
	blockPrefix  string
	menu         string
}

var managerUIs = map[string]managerUI{
	models.ServiceRadarr: {
		queue:        models.SurfaceRadarrQueue,
		itemPrefix:   models.PrefixRadarrQueueItem,
		removePrefix: models.PrefixRadarrQueueRemove,
		blockPrefix:  models.PrefixRadarrQueueBlock,
		menu:         models.CallbackRadarrMenu,
	},
	models.ServiceSonarr: {
		queue:        models.SurfaceSonarrQueue,
		itemPrefix:   models.PrefixSonarrQueueItem,
		removePrefix: models.PrefixSonarrQueueRemove,
		blockPrefix:  models.PrefixSonarrQueueBlock,
		menu:         models.CallbackSonarrMenu,
	},
}

// manager returns the client of a library manager
func (b *Bot) manager(svc string) *arr.Client {
	if svc == models.ServiceSonarr {
		return b.sonarr
	}
	return b.radarr
}

// serviceMenu is the root screen of a service
func (b *Bot) serviceMenu(svc string) *surface.Content {
	var kb *tgmodels.InlineKeyboardMarkup
	switch svc {
	case models.ServiceRadarr:
		kb = formatter.BuildRadarrKeyboard()
	case models.ServiceSonarr:
		kb = formatter.BuildSonarrKeyboard()
	case models.ServicePlex:
		kb = formatter.BuildPlexKeyboard()
	}
	return html(b.formatter.ServiceMenu(svc), kb)
}

func (b *Bot) onServiceMenu(svc string) router.Handler {
	return func(ctx context.Context, req router.Request) error {
		b.flow.Evict(req.ChatID)
		b.pages.Invalidate(req.ChatID)
		return b.showMenu(ctx, req.ChatID, b.serviceMenu(svc))
	}
}

// onCommand triggers a library wide command of a manager
func (b *Bot) onCommand(svc, op string) router.Handler {
	return func(ctx context.Context, req router.Request) error {
		client := b.manager(svc)
		var err error
		done := "Metadata refresh started."
		switch op {
		case "rescan":
			err = client.Rescan(ctx)
			done = "Rescan started."
		case "rename":
			err = client.Rename(ctx)
			done = "Rename started."
		default:
			err = client.RefreshMetadata(ctx)
		}
		b.audit(ctx, req.ChatID, svc+"_"+op, "", err)
		if err != nil {
			return err
		}
		return b.showStatus(ctx, req.ChatID, formatter.Done(done))
	}
}

// queueList renders the download queue of a manager
func (b *Bot) queueList(svc string) listFunc {
	ui := managerUIs[svc]
	return func(ctx context.Context, chatID int64, origin string, page int, refresh bool) (*surface.Content, int, error) {
		key := pager.Key{ChatID: chatID, Surface: ui.queue, Origin: origin}
		p, err := pager.For[models.QueueItem](b.pages).Load(ctx, key, b.manager(svc).Queue, page, refresh)
		if err != nil {
			return nil, 0, err
		}
		kb := formatter.BuildQueueKeyboard(ui.queue, ui.itemPrefix, ui.menu, p)
		return html(b.formatter.Queue(svc, p), kb), p.Number, nil
	}
}

// onQueueItem shows one queue entry with its actions
func (b *Bot) onQueueItem(svc string) router.Handler {
	ui := managerUIs[svc]
	return func(ctx context.Context, req router.Request) error {
		id, err := strconv.ParseInt(req.Payload, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: bad queue id %q", router.ErrUnknownToken, req.Payload)
		}

		items, err := b.manager(svc).Queue(ctx)
		if err != nil {
			return err
		}
		page := 1
		if sel, ok := b.selection(req.ChatID, ui.queue); ok {
			page = sel.Page
		}
		for _, item := range items {
			if item.ID == id {
				kb := formatter.BuildQueueItemKeyboard(ui.removePrefix, ui.blockPrefix, ui.queue, id, page)
				return b.showMenu(ctx, req.ChatID, html(b.formatter.QueueItem(svc, item), kb))
			}
		}
		return b.openList(ctx, req.ChatID, ui.queue, "", page, true,
			html(formatter.Info("That item is no longer in the queue."), nil))
	}
}

// onQueueRemove removes a queue entry, optionally blocklisting the release
// and searching for another. The queue is re-rendered from the service
// either way, so a refused removal still lists the item.
func (b *Bot) onQueueRemove(svc string, block bool) router.Handler {
	ui := managerUIs[svc]
	return func(ctx context.Context, req router.Request) error {
		id, err := strconv.ParseInt(req.Payload, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: bad queue id %q", router.ErrUnknownToken, req.Payload)
		}

		opts := arr.RemoveOptions{Blocklist: block, Search: block}
		err = b.manager(svc).RemoveQueueItem(ctx, id, opts)
		b.audit(ctx, req.ChatID, svc+"_queue_remove", req.Payload, err)

		var status string
		switch {
		case err == nil && block:
			status = formatter.Done("Removed, blocklisted and searching again.")
		case err == nil:
			status = formatter.Done("Removed from queue.")
		case service.KindOf(err) == service.KindRejected:
			status = rejectedText(svc, service.ReasonOf(err))
		default:
			return err
		}

		page := 1
		if sel, ok := b.selection(req.ChatID, ui.queue); ok {
			page = sel.Page
		}
		return b.openList(ctx, req.ChatID, ui.queue, "", page, true, html(status, nil))
	}
}

// wantedList renders missing episodes
func (b *Bot) wantedList(ctx context.Context, chatID int64, origin string, page int, refresh bool) (*surface.Content, int, error) {
	key := pager.Key{ChatID: chatID, Surface: models.SurfaceSonarrWanted, Origin: origin}
	p, err := pager.For[models.WantedEpisode](b.pages).Load(ctx, key, b.sonarr.Wanted, page, refresh)
	if err != nil {
		return nil, 0, err
	}
	return html(b.formatter.Wanted(p), formatter.BuildWantedKeyboard(p)), p.Number, nil
}

// onEpisodeSearch starts a search for one missing episode
func (b *Bot) onEpisodeSearch(ctx context.Context, req router.Request) error {
	id, err := strconv.ParseInt(req.Payload, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad episode id %q", router.ErrUnknownToken, req.Payload)
	}
	err = b.sonarr.SearchEpisode(ctx, id)
	b.audit(ctx, req.ChatID, "sonarr_episode_search", req.Payload, err)
	if err != nil {
		return err
	}
	return b.showStatus(ctx, req.ChatID, formatter.Done("Episode search started."))
}
