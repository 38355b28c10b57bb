package telegram

import (
	"context"
	"errors"
	"runtime/debug"

	"github.com/hryarih32/mediacatalogbot/internal/formatter"
	"github.com/hryarih32/mediacatalogbot/internal/service"
)

// report turns a handler failure into a status update. Rejections and
// unreachable services keep the current menu; unavailable services fall
// back to the main menu; internal errors are logged with a stack and the
// menu is re-rendered from its last content.
func (b *Bot) report(ctx context.Context, chatID int64, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		b.logger.Debug("handler cancelled", "chat_id", chatID)
		return
	}

	kind := service.KindOf(err)
	svc := service.ServiceOf(err)
	reason := service.ReasonOf(err)

	var status string
	refresh := false
	switch kind {
	case service.KindRejected:
		status = rejectedText(svc, reason)
	case service.KindRetryable, service.KindTimeout:
		status = formatter.Unreachable(svc)
	case service.KindNotConfigured, service.KindUnavailable:
		b.logger.Warn("service not available", "chat_id", chatID, "service", svc, "error", err)
		if err := b.showMainMenu(ctx, chatID, false, html(formatter.NotConfigured(svc), nil)); err != nil {
			b.logger.Error("failed to render main menu", "chat_id", chatID, "error", err)
		}
		return
	case service.KindSuperseded, service.KindExpired:
		if reason == "" {
			reason = "That request is no longer open."
		}
		status = formatter.Info(formatter.EscapeHTML(reason))
	case service.KindUnauthorized:
		status = formatter.AccessDenied
	default:
		b.logger.Error("handler failed", "chat_id", chatID, "error", err, "stack", string(debug.Stack()))
		status = formatter.OperationFail
		refresh = true
	}

	if kind != service.KindInternal {
		b.logger.Warn("operation failed", "chat_id", chatID, "kind", kind.String(), "error", err)
	}

	s := b.surfaces.Get(ctx, chatID)
	if refresh {
		if err := s.RefreshMenu(ctx); err != nil {
			b.logger.Error("failed to re-render menu", "chat_id", chatID, "error", err)
		}
	}
	if err := s.RenderStatus(ctx, *html(status, nil)); err != nil {
		b.logger.Error("failed to render status", "chat_id", chatID, "error", err)
	}
}

// rejectedText formats a refusal, with or without a service to blame
func rejectedText(svc, reason string) string {
	if reason == "" {
		reason = "request was rejected"
	}
	if svc == "" {
		return "⚠️ " + formatter.EscapeHTML(reason)
	}
	return formatter.Rejected(svc, reason)
}

// expired reports a button that refers to state the bot no longer has
func expired(op, reason string) error {
	return &service.Error{Kind: service.KindExpired, Op: op, Reason: reason}
}
