package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/hryarih32/mediacatalogbot/internal/confirm"
	"github.com/hryarih32/mediacatalogbot/internal/formatter"
	"github.com/hryarih32/mediacatalogbot/internal/power"
	"github.com/hryarih32/mediacatalogbot/internal/router"
	"github.com/hryarih32/mediacatalogbot/internal/surface"
	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

// mediaKeys are the keys the pc_ prefix accepts
var mediaKeys = map[models.MediaKey]string{
	models.KeyPlayPause:  "⏯ Play/pause",
	models.KeyNext:       "⏭ Next",
	models.KeyPrevious:   "⏮ Previous",
	models.KeyVolumeUp:   "🔊 Volume up",
	models.KeyVolumeDown: "🔉 Volume down",
	models.KeyMute:       "🔇 Mute",
}

// pcMenu is the host control screen
func (b *Bot) pcMenu(chatID int64) *surface.Content {
	cfg := b.config.Current()
	f := models.Features{
		Power: cfg.PowerEnabled && b.power.PowerSupported(),
		Media: cfg.MediaEnabled && b.power.MediaAvailable(),
	}
	f.Volume = f.Media && b.power.VolumeAvailable()
	armed, _ := b.confirm.Pending(chatID)
	return html(b.formatter.PCMenu(f, armed), formatter.BuildPCKeyboard(f))
}

func (b *Bot) onPCMenu(ctx context.Context, req router.Request) error {
	b.flow.Evict(req.ChatID)
	return b.showMenu(ctx, req.ChatID, b.pcMenu(req.ChatID))
}

// onPower feeds a shutdown or restart press to the confirmation machine.
// A failure leaves the chat idle.
func (b *Bot) onPower(action models.PowerAction) router.Handler {
	return func(ctx context.Context, req router.Request) error {
		out, err := b.confirm.Press(ctx, req.ChatID, action)
		if err != nil {
			b.confirm.Reset(req.ChatID)
			b.audit(ctx, req.ChatID, "power_"+string(action), "confirm", err)
			if errors.Is(err, power.ErrUnsupportedOS) {
				b.logger.Warn("power action not supported", "chat_id", req.ChatID, "action", action, "goos", b.power.GOOS())
				return b.show(ctx, req.ChatID, b.pcMenu(req.ChatID), html(formatter.PowerUnsupported(action, b.power.GOOS()), nil))
			}
			return fmt.Errorf("failed to %s: %w", action, err)
		}

		switch out.Kind {
		case confirm.Armed:
			err = b.show(ctx, req.ChatID, b.pcMenu(req.ChatID), html(formatter.PowerArmed(action, out.Window), nil))
		case confirm.Superseded:
			err = b.show(ctx, req.ChatID, b.pcMenu(req.ChatID), html(formatter.PowerCancelled(out.Previous), nil))
		case confirm.Confirmed:
			b.audit(ctx, req.ChatID, "power_"+string(action), fmt.Sprintf("scheduled in %s", out.OSDelay), nil)
			err = b.showMainMenu(ctx, req.ChatID, false, html(formatter.PowerScheduled(action, out.OSDelay), nil))
		}
		return err
	}
}

// onMediaKey sends a media key to the host
func (b *Bot) onMediaKey(ctx context.Context, req router.Request) error {
	key := models.MediaKey(req.Payload)
	name, ok := mediaKeys[key]
	if !ok {
		return fmt.Errorf("%w: media key %q", router.ErrUnknownToken, req.Payload)
	}
	if key.IsVolume() && !b.power.VolumeAvailable() {
		return b.showStatus(ctx, req.ChatID, formatter.NotConfigured("volume control"))
	}
	if err := b.power.PressKey(ctx, key); err != nil {
		return fmt.Errorf("failed to press %s: %w", key, err)
	}
	return b.showStatus(ctx, req.ChatID, formatter.Done(name))
}

// onPowerExpired runs from the timeout job when a press was not confirmed
func (b *Bot) onPowerExpired(chatID int64, action models.PowerAction) {
	ctx, cancel := context.WithTimeout(context.Background(), hookTimeout)
	defer cancel()

	s := b.surfaces.Get(ctx, chatID)
	var menu *surface.Content
	if last, ok := s.Last(surface.RoleMenu); ok && last.Markup != nil && isPCMenu(last) {
		menu = b.pcMenu(chatID)
	}
	if err := s.Update(ctx, menu, html(formatter.PowerExpired(action), nil), false); err != nil {
		b.logger.Error("failed to report expired confirmation", "chat_id", chatID, "error", err)
	}
}

// onPowerExecuted runs from the execution job after the OS command
func (b *Bot) onPowerExecuted(chatID int64, action models.PowerAction, runErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), hookTimeout)
	defer cancel()

	b.audit(ctx, chatID, "power_"+string(action), "executed", runErr)
	if runErr == nil {
		return
	}
	if err := b.showStatus(ctx, chatID, formatter.PowerFailed(action, runErr)); err != nil {
		b.logger.Error("failed to report power failure", "chat_id", chatID, "error", err)
	}
}

// isPCMenu reports whether content is the host control screen
func isPCMenu(content surface.Content) bool {
	for _, row := range content.Markup.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData == models.CallbackPCShutdown {
				return true
			}
		}
	}
	return false
}
