package surface

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Surface holds the menu and status slots of one chat. Writes are
// serialized by a per-chat lock that honours context cancellation.
type Surface struct {
	chatID int64
	lock   chan struct{}
	menu   *Slot
	status *Slot
}

// ChatID returns the chat the surface belongs to
func (s *Surface) ChatID() int64 {
	return s.chatID
}

func (s *Surface) acquire(ctx context.Context) error {
	select {
	case s.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to acquire surface lock: %w", ctx.Err())
	}
}

func (s *Surface) release() {
	<-s.lock
}

// RenderMenu renders content on the menu slot
func (s *Surface) RenderMenu(ctx context.Context, content Content, forceNew bool) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	return s.menu.Render(ctx, content, forceNew)
}

// RenderStatus renders content on the status slot
func (s *Surface) RenderStatus(ctx context.Context, content Content) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	return s.status.Render(ctx, content, false)
}

// Update renders menu then status under one lock. A nil content leaves
// that slot untouched. With forceNew both rendered slots are sent fresh
// so the status stays below the menu.
func (s *Surface) Update(ctx context.Context, menu, status *Content, forceNew bool) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	var menuErr error
	if menu != nil {
		menuErr = s.menu.Render(ctx, *menu, forceNew)
	}
	if status != nil {
		if err := s.status.Render(ctx, *status, forceNew); err != nil {
			if menuErr != nil {
				return fmt.Errorf("%w; %w", menuErr, err)
			}
			return err
		}
	}
	return menuErr
}

// RefreshMenu re-renders the last menu content, for example after the
// message was deleted by hand
func (s *Surface) RefreshMenu(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	if s.menu.last == nil {
		return nil
	}
	return s.menu.Render(ctx, *s.menu.last, false)
}

// Last returns the last content rendered on role
func (s *Surface) Last(role Role) (Content, bool) {
	s.lock <- struct{}{}
	defer s.release()

	slot := s.slot(role)
	if slot == nil || slot.last == nil {
		return Content{}, false
	}
	return *slot.last, true
}

// MessageID returns the message id held by role, or 0
func (s *Surface) MessageID(role Role) int {
	s.lock <- struct{}{}
	defer s.release()

	if slot := s.slot(role); slot != nil {
		return slot.messageID
	}
	return 0
}

func (s *Surface) slot(role Role) *Slot {
	switch role {
	case RoleMenu:
		return s.menu
	case RoleStatus:
		return s.status
	}
	return nil
}

// Option configures a Registry
type Option func(*Registry)

// WithSleep replaces the wait used between rate limited attempts
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Registry) {
		r.sleep = sleep
	}
}

// Registry maps chat ids to surfaces, restoring persisted message ids on
// first use
type Registry struct {
	mu        sync.Mutex
	surfaces  map[int64]*Surface
	transport Transport
	store     SlotStore
	sleep     func(ctx context.Context, d time.Duration) error
	logger    *slog.Logger
}

// NewRegistry creates a new registry
func NewRegistry(transport Transport, store SlotStore, logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		surfaces:  make(map[int64]*Surface),
		transport: transport,
		store:     store,
		sleep:     sleepContext,
		logger:    logger.With("component", "surface"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the surface of chatID, creating it on first use
func (r *Registry) Get(ctx context.Context, chatID int64) *Surface {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.surfaces[chatID]; ok {
		return s
	}

	s := &Surface{
		chatID: chatID,
		lock:   make(chan struct{}, 1),
		menu:   r.newSlot(chatID, RoleMenu),
		status: r.newSlot(chatID, RoleStatus),
	}

	ids, err := r.store.GetSlots(ctx, chatID)
	if err != nil {
		r.logger.Warn("failed to restore slots", "chat_id", chatID, "error", err)
	}
	s.menu.messageID = ids[string(RoleMenu)]
	s.status.messageID = ids[string(RoleStatus)]

	r.surfaces[chatID] = s
	return s
}

func (r *Registry) newSlot(chatID int64, role Role) *Slot {
	return &Slot{
		chatID:    chatID,
		role:      role,
		transport: r.transport,
		store:     r.store,
		sleep:     r.sleep,
		logger:    r.logger.With("chat_id", chatID),
	}
}
