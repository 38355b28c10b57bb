package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hryarih32/mediacatalogbot/internal/flow"
	"github.com/hryarih32/mediacatalogbot/internal/formatter"
	"github.com/hryarih32/mediacatalogbot/internal/pager"
	"github.com/hryarih32/mediacatalogbot/internal/router"
	"github.com/hryarih32/mediacatalogbot/internal/service"
	"github.com/hryarih32/mediacatalogbot/internal/surface"
	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

// onArm makes the chat wait for free text and shows the prompt
func (b *Bot) onArm(kind models.FlowKind) router.Handler {
	return func(ctx context.Context, req router.Request) error {
		b.flow.Evict(req.ChatID)
		target := ""
		if kind == models.FlowAddDownload {
			var err error
			if target, err = b.downloadTarget(req.ChatID); err != nil {
				return err
			}
		}
		b.flow.Arm(req.ChatID, kind)
		return b.showMenu(ctx, req.ChatID, b.prompt(kind, target))
	}
}

func (b *Bot) prompt(kind models.FlowKind, target string) *surface.Content {
	return html(b.formatter.Prompt(kind, target), formatter.BuildPromptKeyboard(kind, target))
}

// downloadTarget returns the manager links go to, switching to the other
// one when only that one is configured
func (b *Bot) downloadTarget(chatID int64) (string, error) {
	if !b.radarr.IsConfigured() && !b.sonarr.IsConfigured() {
		return "", service.NotConfigured(models.ServiceRadarr)
	}
	target := b.flow.DownloadTarget(chatID)
	if !b.manager(target).IsConfigured() {
		target = b.flow.ToggleDownloadTarget(chatID)
	}
	return target, nil
}

// onDownloadTarget switches the manager of the download prompt
func (b *Bot) onDownloadTarget(ctx context.Context, req router.Request) error {
	target := b.flow.ToggleDownloadTarget(req.ChatID)
	if !b.manager(target).IsConfigured() {
		target = b.flow.ToggleDownloadTarget(req.ChatID)
	}
	if _, ok := b.flow.Armed(req.ChatID); !ok {
		b.flow.Arm(req.ChatID, models.FlowAddDownload)
	}
	return b.showMenu(ctx, req.ChatID, b.prompt(models.FlowAddDownload, target))
}

// handleFlowText runs the flow that was waiting for text
func (b *Bot) handleFlowText(ctx context.Context, chatID int64, kind models.FlowKind, text string) error {
	if text == "" {
		return service.Rejected("", "flow", 0, "Send some text to search for.")
	}

	switch kind {
	case models.FlowAddMovie, models.FlowAddShow:
		svc := models.ServiceRadarr
		if kind == models.FlowAddShow {
			svc = models.ServiceSonarr
		}
		b.flow.SetResults(chatID, flow.Results{Service: svc, Term: text})
		return b.openList(ctx, chatID, models.SurfaceCatalogResults, svc, 1, true, nil)

	case models.FlowPlexSearch:
		return b.openList(ctx, chatID, models.SurfacePlexSearch, text, 1, true, nil)

	case models.FlowAddDownload:
		target, err := b.downloadTarget(chatID)
		if err != nil {
			return err
		}
		err = b.manager(target).PushRelease(ctx, text)
		b.audit(ctx, chatID, target+"_push_release", text, err)
		if err != nil {
			return err
		}
		done := html(formatter.Done("Download sent to "+formatter.ServiceName(target)+"."), nil)
		return b.showMainMenu(ctx, chatID, false, done)
	}
	return fmt.Errorf("unknown flow %q", kind)
}

// resultsList renders the last catalog search. A refresh repeats the
// lookup and replaces the stored results that pick_ indexes into.
func (b *Bot) resultsList(ctx context.Context, chatID int64, origin string, page int, refresh bool) (*surface.Content, int, error) {
	results, ok := b.flow.Results(chatID)
	if !ok {
		return nil, 0, expired("search", "This search is no longer open.")
	}

	provider := func(ctx context.Context) ([]models.CatalogItem, error) {
		items, err := b.manager(results.Service).Lookup(ctx, results.Term)
		if err != nil {
			return nil, err
		}
		b.flow.SetResults(chatID, flow.Results{Service: results.Service, Term: results.Term, Items: items})
		return items, nil
	}

	key := pager.Key{ChatID: chatID, Surface: models.SurfaceCatalogResults, Origin: origin}
	p, err := pager.For[models.CatalogItem](b.pages).Load(ctx, key, provider, page, refresh)
	if err != nil {
		return nil, 0, err
	}
	if results, ok = b.flow.Results(chatID); !ok {
		return nil, 0, expired("search", "This search is no longer open.")
	}
	return html(b.formatter.SearchResults(results, p), formatter.BuildResultsKeyboard(p)), p.Number, nil
}

// onPick opens the add sheet of one search result
func (b *Bot) onPick(ctx context.Context, req router.Request) error {
	idx, err := strconv.Atoi(req.Payload)
	if err != nil {
		return fmt.Errorf("%w: bad result index %q", router.ErrUnknownToken, req.Payload)
	}
	results, ok := b.flow.Results(req.ChatID)
	if !ok || idx < 0 || idx >= len(results.Items) {
		return expired("pick", "This search is no longer open.")
	}
	item := results.Items[idx]
	if item.InLibrary {
		return service.Rejected(results.Service, "add", 0, "already in library")
	}

	client := b.manager(results.Service)
	choices := flow.SheetChoices{Monitors: client.MonitorOptions()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		choices.Profiles, err = client.Profiles(gctx)
		return err
	})
	g.Go(func() (err error) {
		choices.Folders, err = client.RootFolders(gctx)
		return err
	})
	g.Go(func() (err error) {
		choices.Tags, err = client.Tags(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if len(choices.Profiles) == 0 || len(choices.Folders) == 0 {
		return service.Rejected(results.Service, "add", 0, "no quality profile or root folder is set up")
	}

	sheet := b.flow.StartSheet(req.ChatID, results.Service, item, choices)
	return b.showSheet(ctx, req.ChatID, sheet)
}

func (b *Bot) showSheet(ctx context.Context, chatID int64, sheet flow.AddSheet) error {
	return b.showMenu(ctx, chatID, html(b.formatter.Sheet(sheet), formatter.BuildSheetKeyboard(sheet)))
}

// splitSheetPayload splits "<sid>.<value>"
func splitSheetPayload(payload string) (string, string, error) {
	sid, value, ok := strings.Cut(payload, ".")
	if !ok || sid == "" || value == "" {
		return "", "", fmt.Errorf("%w: bad sheet payload %q", router.ErrUnknownToken, payload)
	}
	return sid, value, nil
}

// onSheetField cycles one field of the add sheet
func (b *Bot) onSheetField(ctx context.Context, req router.Request) error {
	sid, field, err := splitSheetPayload(req.Payload)
	if err != nil {
		return err
	}
	switch field {
	case flow.FieldProfile, flow.FieldFolder, flow.FieldMonitor, flow.FieldSearch:
	default:
		return fmt.Errorf("%w: unknown sheet field %q", router.ErrUnknownToken, field)
	}

	sheet, err := b.flow.Toggle(req.ChatID, sid, field)
	if err != nil {
		return err
	}
	return b.showSheet(ctx, req.ChatID, sheet)
}

// onSheetTag selects or deselects one tag of the add sheet
func (b *Bot) onSheetTag(ctx context.Context, req router.Request) error {
	sid, value, err := splitSheetPayload(req.Payload)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad tag id %q", router.ErrUnknownToken, value)
	}

	sheet, err := b.flow.ToggleTag(req.ChatID, sid, id)
	var serr *service.Error
	if err != nil && !errors.As(err, &serr) {
		return fmt.Errorf("%w: %w", router.ErrUnknownToken, err)
	}
	if err != nil {
		return err
	}
	return b.showSheet(ctx, req.ChatID, sheet)
}

// onSheetSubmit sends the add request and returns to the service menu.
// The sheet stays open when the service could not be reached so the add
// button can be pressed again.
func (b *Bot) onSheetSubmit(ctx context.Context, req router.Request) error {
	sheet, err := b.flow.Sheet(req.ChatID, req.Payload)
	if err != nil {
		return err
	}

	err = b.manager(sheet.Service).Add(ctx, sheet.Item, sheet.Options)
	b.audit(ctx, req.ChatID, sheet.Service+"_add", formatter.CatalogLabel(sheet.Item), err)

	var status string
	switch {
	case err == nil:
		status = formatter.Done(formatter.EscapeHTML(formatter.CatalogLabel(sheet.Item)) + " added to " + formatter.ServiceName(sheet.Service) + ".")
	case service.KindOf(err) == service.KindRejected:
		status = rejectedText(sheet.Service, service.ReasonOf(err))
	default:
		return err
	}

	if _, err := b.flow.Finish(req.ChatID, sheet.ID); err != nil {
		b.logger.Debug("add sheet already closed", "chat_id", req.ChatID, "sheet", sheet.ID)
	}
	b.flow.Evict(req.ChatID)
	b.pages.Invalidate(req.ChatID)
	return b.show(ctx, req.ChatID, b.serviceMenu(sheet.Service), html(status, nil))
}
