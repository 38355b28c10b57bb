package telegram

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/hryarih32/mediacatalogbot/internal/scheduler"
	"github.com/hryarih32/mediacatalogbot/internal/surface"
	appmodels "github.com/hryarih32/mediacatalogbot/pkg/models"
)

const (
	// recentActions is how many audit entries /status shows
	recentActions = 5
	// actionRetention is how long audit entries are kept
	actionRetention = 30 * 24 * time.Hour
	pruneJobName    = "prune_action_log"
	pruneInterval   = 24 * time.Hour
)

// sendMessage sends a plain HTML message outside the slots
func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) (*models.Message, error) {
	return b.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
}

// deleteMessage deletes a message, logging failures only
func (b *Bot) deleteMessage(ctx context.Context, chatID int64, msgID int) {
	if msgID == 0 {
		return
	}
	if _, err := b.api.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: msgID,
	}); err != nil {
		b.logger.Warn("failed to delete message", "chat_id", chatID, "message_id", msgID, "error", err)
	}
}

// answerCallback answers a callback query
func (b *Bot) answerCallback(ctx context.Context, callbackID, text string, showAlert bool) {
	if _, err := b.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       showAlert,
	}); err != nil {
		b.logger.Warn("failed to answer callback", "callback_id", callbackID, "error", err)
	}
}

// html wraps formatted text and a keyboard as slot content
func html(text string, markup *models.InlineKeyboardMarkup) *surface.Content {
	return &surface.Content{Text: text, Markup: markup, ParseMode: models.ParseModeHTML}
}

// showMenu renders content on the menu slot of chatID
func (b *Bot) showMenu(ctx context.Context, chatID int64, menu *surface.Content) error {
	return b.surfaces.Get(ctx, chatID).Update(ctx, menu, nil, false)
}

// showStatus renders text on the status slot of chatID
func (b *Bot) showStatus(ctx context.Context, chatID int64, text string) error {
	return b.surfaces.Get(ctx, chatID).RenderStatus(ctx, *html(text, nil))
}

// show renders menu then status of chatID. Either may be nil.
func (b *Bot) show(ctx context.Context, chatID int64, menu, status *surface.Content) error {
	return b.surfaces.Get(ctx, chatID).Update(ctx, menu, status, false)
}

// audit records a mutating action in the action log
func (b *Bot) audit(ctx context.Context, chatID int64, action, detail string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed: " + err.Error()
	}
	record := &appmodels.ActionRecord{
		ChatID:  chatID,
		Action:  action,
		Detail:  detail,
		Outcome: outcome,
	}
	if logErr := b.db.LogAction(ctx, record); logErr != nil {
		b.logger.Warn("failed to log action", "action", action, "error", logErr)
	}
}

// schedulePrune trims the action log once a day
func (b *Bot) schedulePrune() {
	_, err := b.scheduler.RunOnce(pruneJobName, pruneInterval, nil, func(ctx context.Context, _ *scheduler.Job) {
		n, err := b.db.PruneActions(ctx, b.clock.Now().Add(-actionRetention))
		if err != nil {
			b.logger.Warn("failed to prune action log", "error", err)
		} else if n > 0 {
			b.logger.Info("action log pruned", "removed", n)
		}
		b.schedulePrune()
	})
	if err != nil {
		b.logger.Debug("action log pruning not scheduled", "error", err)
	}
}
