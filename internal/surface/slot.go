// Package surface owns the two chat messages (menu and status) that form
// the bot's UI and edits them in place.
package surface

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Role names a slot
type Role string

const (
	RoleMenu   Role = "menu"
	RoleStatus Role = "status"
)

const (
	// MaxEditRetries bounds retries after a rate limit
	MaxEditRetries = 3
	// MaxRetryWait caps a single rate limit wait
	MaxRetryWait = 30 * time.Second
)

// Transport is the part of the Telegram API a slot needs. *bot.Bot
// satisfies it.
type Transport interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
}

// SlotStore persists slot message ids across restarts
type SlotStore interface {
	SaveSlot(ctx context.Context, chatID int64, role string, messageID int) error
	ClearSlot(ctx context.Context, chatID int64, role string) error
	GetSlots(ctx context.Context, chatID int64) (map[string]int, error)
}

// Content is what a slot displays
type Content struct {
	Text      string
	Markup    *models.InlineKeyboardMarkup
	ParseMode models.ParseMode
}

// Hash identifies content for deduplication
func (c Content) Hash() string {
	h := sha256.New()
	h.Write([]byte(c.Text))
	h.Write([]byte{0})
	if c.Markup != nil {
		markup, _ := json.Marshal(c.Markup)
		h.Write(markup)
	}
	h.Write([]byte{0})
	h.Write([]byte(c.parseMode()))
	return hex.EncodeToString(h.Sum(nil))
}

func (c Content) parseMode() models.ParseMode {
	if c.ParseMode == "" {
		return models.ParseModeHTML
	}
	return c.ParseMode
}

// Slot owns one chat message. A Slot is not safe for concurrent use; the
// owning Surface serializes access.
type Slot struct {
	chatID    int64
	role      Role
	messageID int
	hash      string
	last      *Content

	transport Transport
	store     SlotStore
	sleep     func(ctx context.Context, d time.Duration) error
	logger    *slog.Logger
}

// MessageID returns the current message id, or 0 when the slot is empty
func (s *Slot) MessageID() int {
	return s.messageID
}

// Hash returns the hash of the last successfully rendered content
func (s *Slot) Hash() string {
	return s.hash
}

// Render shows content in the slot, editing the existing message when
// there is one. Identical content is a no-op.
func (s *Slot) Render(ctx context.Context, content Content, forceNew bool) error {
	hash := content.Hash()

	if forceNew || s.messageID == 0 {
		return s.send(ctx, content, hash)
	}

	if s.hash == hash {
		return nil
	}

	err := s.edit(ctx, content)
	switch {
	case err == nil, isNotModified(err):
		s.rendered(content, hash)
		return nil
	case isNotFound(err):
		s.logger.Info("message gone, sending a new one", "role", s.role, "message_id", s.messageID)
		s.clear(ctx)
		return s.send(ctx, content, hash)
	default:
		return fmt.Errorf("failed to edit %s message: %w", s.role, err)
	}
}

func (s *Slot) edit(ctx context.Context, content Content) error {
	params := &bot.EditMessageTextParams{
		ChatID:    s.chatID,
		MessageID: s.messageID,
		Text:      content.Text,
		ParseMode: content.parseMode(),
	}
	if content.Markup != nil {
		params.ReplyMarkup = content.Markup
	}

	return s.retry(ctx, func() error {
		_, err := s.transport.EditMessageText(ctx, params)
		return err
	})
}

func (s *Slot) send(ctx context.Context, content Content, hash string) error {
	params := &bot.SendMessageParams{
		ChatID:    s.chatID,
		Text:      content.Text,
		ParseMode: content.parseMode(),
	}
	if content.Markup != nil {
		params.ReplyMarkup = content.Markup
	}

	var msg *models.Message
	err := s.retry(ctx, func() error {
		var err error
		msg, err = s.transport.SendMessage(ctx, params)
		return err
	})

	// A failed replacement keeps the old message, which is still on screen
	if err != nil {
		return fmt.Errorf("failed to send %s message: %w", s.role, err)
	}

	previous := s.messageID

	s.messageID = msg.ID
	s.rendered(content, hash)
	if err := s.store.SaveSlot(ctx, s.chatID, string(s.role), msg.ID); err != nil {
		s.logger.Warn("failed to persist slot", "role", s.role, "error", err)
	}

	if previous != 0 && previous != msg.ID {
		if _, err := s.transport.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: s.chatID, MessageID: previous}); err != nil {
			s.logger.Debug("failed to delete replaced message", "role", s.role, "message_id", previous, "error", err)
		}
	}
	return nil
}

// retry runs fn, waiting out rate limits up to MaxEditRetries times
func (s *Slot) retry(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		var tooMany *bot.TooManyRequestsError
		if err == nil || !errors.As(err, &tooMany) || attempt >= MaxEditRetries {
			return err
		}

		wait := retryWait(tooMany.RetryAfter)
		s.logger.Warn("rate limited", "role", s.role, "attempt", attempt+1, "wait", wait)
		if err := s.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (s *Slot) rendered(content Content, hash string) {
	s.hash = hash
	s.last = &content
}

func (s *Slot) clear(ctx context.Context) {
	s.messageID = 0
	s.hash = ""
	if err := s.store.ClearSlot(ctx, s.chatID, string(s.role)); err != nil {
		s.logger.Warn("failed to clear persisted slot", "role", s.role, "error", err)
	}
}

func retryWait(seconds int) time.Duration {
	wait := time.Duration(seconds) * time.Second
	if wait <= 0 {
		wait = time.Second
	}
	return min(wait, MaxRetryWait)
}

func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}

func isNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "message to edit not found") ||
		strings.Contains(msg, "MESSAGE_ID_INVALID")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
