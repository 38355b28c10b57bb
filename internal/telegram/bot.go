package telegram

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/hryarih32/mediacatalogbot/internal/arr"
	"github.com/hryarih32/mediacatalogbot/internal/clock"
	"github.com/hryarih32/mediacatalogbot/internal/config"
	"github.com/hryarih32/mediacatalogbot/internal/confirm"
	"github.com/hryarih32/mediacatalogbot/internal/database"
	"github.com/hryarih32/mediacatalogbot/internal/flow"
	"github.com/hryarih32/mediacatalogbot/internal/formatter"
	"github.com/hryarih32/mediacatalogbot/internal/pager"
	"github.com/hryarih32/mediacatalogbot/internal/plex"
	"github.com/hryarih32/mediacatalogbot/internal/power"
	"github.com/hryarih32/mediacatalogbot/internal/router"
	"github.com/hryarih32/mediacatalogbot/internal/scheduler"
	"github.com/hryarih32/mediacatalogbot/internal/surface"
)

// hookTimeout bounds UI updates made from scheduler jobs
const hookTimeout = 15 * time.Second

// API is the part of the Telegram Bot API the bot uses. *bot.Bot
// satisfies it.
type API interface {
	surface.Transport
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// Bot represents the Telegram bot
type Bot struct {
	bot       *bot.Bot
	api       API
	config    *config.Store
	db        *database.DB
	surfaces  *surface.Registry
	router    *router.Router
	pages     *pager.Cache
	flow      *flow.Store
	confirm   *confirm.Machine
	scheduler *scheduler.Scheduler
	power     *power.Controller
	radarr    *arr.Client
	sonarr    *arr.Client
	plex      *plex.Client
	clock     clock.Clock
	formatter *formatter.TelegramFormatter
	lists     map[string]listFunc
	logger    *slog.Logger
}

// BotDeps dependencies for creating a bot
type BotDeps struct {
	Config    *config.Store
	DB        *database.DB
	Scheduler *scheduler.Scheduler
	Power     *power.Controller
	Radarr    *arr.Client
	Sonarr    *arr.Client
	Plex      *plex.Client
	Clock     clock.Clock
	Formatter *formatter.TelegramFormatter
	Logger    *slog.Logger
}

// NewBot creates a new Telegram bot
func NewBot(deps BotDeps) (*Bot, error) {
	b := newBot(deps)
	cfg := deps.Config.Current()

	opts := []bot.Option{
		bot.WithDefaultHandler(b.defaultHandler),
		bot.WithMiddlewares(b.adminOnly),
		bot.WithWorkers(cfg.Workers),
	}

	tgBot, err := bot.New(cfg.TelegramToken, opts...)
	if err != nil {
		return nil, err
	}

	b.bot = tgBot
	b.attach(tgBot)
	b.registerHandlers()

	return b, nil
}

// newBot wires everything that does not need the Telegram connection
func newBot(deps BotDeps) *Bot {
	cfg := deps.Config.Current()
	b := &Bot{
		config:    deps.Config,
		db:        deps.DB,
		pages:     pager.NewCache(cfg.PageSize),
		flow:      flow.NewStore(deps.Clock),
		scheduler: deps.Scheduler,
		power:     deps.Power,
		radarr:    deps.Radarr,
		sonarr:    deps.Sonarr,
		plex:      deps.Plex,
		clock:     deps.Clock,
		formatter: deps.Formatter,
		logger:    deps.Logger.With("component", "telegram_bot"),
	}

	b.confirm = confirm.New(confirm.Config{
		Window:  cfg.ConfirmWindow,
		OSDelay: cfg.PowerDelay,
	}, deps.Scheduler, deps.Power, deps.Clock, confirm.Hooks{
		OnExpire:   b.onPowerExpired,
		OnExecuted: b.onPowerExecuted,
	}, deps.Logger)

	deps.Config.OnReload(b.applyConfig)

	b.router = router.New(
		router.WithAvailability(b.available),
		router.WithUnavailable(b.handleUnavailable),
	)
	b.registerLists()
	b.registerRoutes()
	return b
}

// attach connects the bot to a Telegram API
func (b *Bot) attach(api API, opts ...surface.Option) {
	b.api = api
	b.surfaces = surface.NewRegistry(api, b.db, b.logger, opts...)
}

// registerHandlers registers command handlers
func (b *Bot) registerHandlers() {
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, b.handleStart)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/home", bot.MatchTypePrefix, b.handleStart)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/settings", bot.MatchTypePrefix, b.handleSettings)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypePrefix, b.handleStatus)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, b.handleCallback)
}

// Start starts the bot
func (b *Bot) Start(ctx context.Context) {
	b.logger.Info("starting telegram bot", "admin_chat_id", b.config.Current().AdminChatID)
	b.schedulePrune()
	b.bot.Start(ctx)
}

// applyConfig pushes reloaded values into the components that cache them
func (b *Bot) applyConfig(cfg *config.Config) {
	b.pages.SetSize(cfg.PageSize)
	b.confirm.Configure(confirm.Config{
		Window:  cfg.ConfirmWindow,
		OSDelay: cfg.PowerDelay,
	})
	b.logger.Info("settings applied", "page_size", cfg.PageSize, "confirm_window", cfg.ConfirmWindow, "power_delay", cfg.PowerDelay)
}

// adminOnly rejects every update that does not come from the admin chat
func (b *Bot) adminOnly(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
		chatID, ok := updateChatID(update)
		if !ok {
			return
		}
		if chatID == b.config.Current().AdminChatID {
			next(ctx, tgBot, update)
			return
		}

		b.logger.Warn("rejected update from unauthorized chat", "chat_id", chatID)
		switch {
		case update.CallbackQuery != nil:
			b.answerCallback(ctx, update.CallbackQuery.ID, formatter.AccessDenied, true)
		case update.Message != nil:
			if _, err := b.sendMessage(ctx, chatID, formatter.AccessDenied); err != nil {
				b.logger.Warn("failed to send access denied", "chat_id", chatID, "error", err)
			}
			b.deleteMessage(ctx, chatID, update.Message.ID)
		}
	}
}

// updateChatID returns the chat an update belongs to
func updateChatID(update *models.Update) (int64, bool) {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID, true
	case update.CallbackQuery != nil:
		return callbackChatID(update.CallbackQuery), true
	}
	return 0, false
}

func callbackChatID(cq *models.CallbackQuery) int64 {
	switch {
	case cq.Message.Message != nil:
		return cq.Message.Message.Chat.ID
	case cq.Message.InaccessibleMessage != nil:
		return cq.Message.InaccessibleMessage.Chat.ID
	}
	return cq.From.ID
}
