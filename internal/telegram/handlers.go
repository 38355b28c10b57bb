package telegram

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/hryarih32/mediacatalogbot/internal/formatter"
	"github.com/hryarih32/mediacatalogbot/internal/router"
	"github.com/hryarih32/mediacatalogbot/internal/surface"
)

// handleStart handles /start and /home: a fresh main menu with a greeting
func (b *Bot) handleStart(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	defer b.deleteMessage(ctx, msg.Chat.ID, msg.ID)

	if err := b.showMainMenu(ctx, msg.Chat.ID, true, html(formatter.Greeting, nil)); err != nil {
		b.report(ctx, msg.Chat.ID, err)
	}
}

// handleSettings handles /settings
func (b *Bot) handleSettings(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	defer b.deleteMessage(ctx, msg.Chat.ID, msg.ID)

	if err := b.surfaces.Get(ctx, msg.Chat.ID).Update(ctx, b.settingsScreen(), nil, true); err != nil {
		b.report(ctx, msg.Chat.ID, err)
	}
}

// handleStatus handles /status: a health summary on the status slot
func (b *Bot) handleStatus(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	defer b.deleteMessage(ctx, msg.Chat.ID, msg.ID)

	lines := b.healthLines(ctx, msg.Chat.ID)
	recent, err := b.db.RecentActions(ctx, msg.Chat.ID, recentActions)
	if err != nil {
		b.logger.Warn("failed to get recent actions", "error", err)
	}

	if err := b.showStatus(ctx, msg.Chat.ID, b.formatter.Health(lines, recent)); err != nil {
		b.report(ctx, msg.Chat.ID, err)
	}
}

// defaultHandler handles messages no command matched: free text goes to
// the armed flow, anything else is dropped
func (b *Bot) defaultHandler(ctx context.Context, _ *bot.Bot, update *models.Update) {
	// Ignore non-message updates and messages without text
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	msg := update.Message
	defer b.deleteMessage(ctx, msg.Chat.ID, msg.ID)

	if strings.HasPrefix(msg.Text, "/") {
		b.logger.Debug("unknown command", "text", msg.Text)
		if err := b.showStatus(ctx, msg.Chat.ID, formatter.UnknownCommand); err != nil {
			b.report(ctx, msg.Chat.ID, err)
		}
		return
	}

	pending, ok := b.flow.Consume(msg.Chat.ID)
	if !ok {
		b.logger.Debug("text ignored, no flow armed", "chat_id", msg.Chat.ID)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if err := b.handleFlowText(ctx, msg.Chat.ID, pending.Kind, text); err != nil {
		// Keep the prompt usable after a failed attempt
		b.flow.Arm(msg.Chat.ID, pending.Kind)
		b.report(ctx, msg.Chat.ID, err)
	}
}

// handleCallback handles inline button presses
func (b *Bot) handleCallback(ctx context.Context, _ *bot.Bot, update *models.Update) {
	callback := update.CallbackQuery
	if callback == nil {
		return
	}
	b.answerCallback(ctx, callback.ID, "", false)

	chatID := callbackChatID(callback)
	err := b.router.Dispatch(ctx, router.Request{ChatID: chatID, Token: callback.Data})
	if errors.Is(err, router.ErrUnknownToken) {
		b.logger.Warn("unknown callback token", "chat_id", chatID, "data", callback.Data)
		if err := b.showStatus(ctx, chatID, formatter.UnknownCommand); err != nil {
			b.logger.Error("failed to render status", "chat_id", chatID, "error", err)
		}
		return
	}
	b.report(ctx, chatID, err)
}

// handleUnavailable is the router's answer for buttons of a service that
// is not configured or disabled
func (b *Bot) handleUnavailable(ctx context.Context, req router.Request, feature string) error {
	b.logger.Info("feature not available", "chat_id", req.ChatID, "feature", feature, "token", req.Token)
	return b.showMainMenu(ctx, req.ChatID, false, html(formatter.NotConfigured(feature), nil))
}

// showMainMenu leaves whatever the chat was doing and renders the main
// menu from a fresh feature probe
func (b *Bot) showMainMenu(ctx context.Context, chatID int64, forceNew bool, status *surface.Content) error {
	b.flow.Evict(chatID)
	b.pages.Invalidate(chatID)

	features := b.probe(ctx)
	menu := html(b.formatter.MainMenu(features), formatter.BuildMainMenuKeyboard(features))
	return b.surfaces.Get(ctx, chatID).Update(ctx, menu, status, forceNew)
}

func (b *Bot) settingsScreen() *surface.Content {
	return html(b.formatter.Settings(b.config.Current().Settings()), formatter.BuildSettingsKeyboard())
}
