package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hryarih32/mediacatalogbot/internal/arr"
	"github.com/hryarih32/mediacatalogbot/internal/clock"
	"github.com/hryarih32/mediacatalogbot/internal/config"
	"github.com/hryarih32/mediacatalogbot/internal/confirm"
	"github.com/hryarih32/mediacatalogbot/internal/database"
	"github.com/hryarih32/mediacatalogbot/internal/formatter"
	"github.com/hryarih32/mediacatalogbot/internal/plex"
	"github.com/hryarih32/mediacatalogbot/internal/power"
	"github.com/hryarih32/mediacatalogbot/internal/scheduler"
	"github.com/hryarih32/mediacatalogbot/internal/surface"
	appmodels "github.com/hryarih32/mediacatalogbot/pkg/models"
)

const adminChat int64 = 4242

// fakeAPI records every call and keeps the current text of each message
type fakeAPI struct {
	mu       sync.Mutex
	nextID   int
	sent     []*bot.SendMessageParams
	edits    []*bot.EditMessageTextParams
	deleted  []int
	answered []*bot.AnswerCallbackQueryParams
	texts    map[int]string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{nextID: 100, texts: make(map[int]string)}
}

func (f *fakeAPI) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, params)
	f.texts[f.nextID] = params.Text
	return &models.Message{ID: f.nextID}, nil
}

func (f *fakeAPI) EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, params)
	f.texts[params.MessageID] = params.Text
	return &models.Message{ID: params.MessageID}, nil
}

func (f *fakeAPI) DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, params.MessageID)
	delete(f.texts, params.MessageID)
	return true, nil
}

func (f *fakeAPI) AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, params)
	return true, nil
}

func (f *fakeAPI) editCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.edits)
}

func (f *fakeAPI) text(id int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.texts[id]
}

type fakeRunner struct {
	mu      sync.Mutex
	started []power.Command
}

func (r *fakeRunner) Run(ctx context.Context, cmd power.Command) error {
	return nil
}

func (r *fakeRunner) Start(cmd power.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, cmd)
	return nil
}

func (r *fakeRunner) LookPath(file string) (string, error) {
	return "", fmt.Errorf("%s not found", file)
}

func (r *fakeRunner) startedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.started)
}

type harness struct {
	bot    *Bot
	api    *fakeAPI
	db     *database.DB
	clock  *clock.FakeClock
	sched  *scheduler.Scheduler
	runner *fakeRunner
}

// harnessOptions selects the fake backends of a harness. A nil handler
// leaves that service unconfigured.
type harnessOptions struct {
	goos   string
	radarr http.HandlerFunc
	plex   http.HandlerFunc
	env    map[string]string
}

// newHarness builds a bot against a fake Telegram API. radarr may be nil
// for a bot without Radarr.
func newHarness(t *testing.T, radarr http.HandlerFunc, env map[string]string) *harness {
	t.Helper()
	return newHarnessWith(t, harnessOptions{radarr: radarr, env: env})
}

func newHarnessWith(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	if opts.goos == "" {
		opts.goos = "linux"
	}
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:test")
	t.Setenv("ADMIN_CHAT_ID", fmt.Sprint(adminChat))
	t.Setenv("MEDIA_ENABLED", "false")
	t.Setenv("POWER_DELAY", "15s")
	t.Setenv("CONFIRM_WINDOW", "30s")
	t.Setenv("PAGE_SIZE", "5")
	t.Setenv("RADARR_URL", "")
	t.Setenv("RADARR_API_KEY", "")
	t.Setenv("SONARR_URL", "")
	t.Setenv("SONARR_API_KEY", "")
	t.Setenv("PLEX_URL", "")
	t.Setenv("PLEX_TOKEN", "")
	for k, v := range opts.env {
		t.Setenv(k, v)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := config.NewStore(filepath.Join(t.TempDir(), ".env"), logger)
	require.NoError(t, err)

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Migrate(context.Background())
	require.NoError(t, err)

	clk := clock.Fake(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	radarrCfg := arr.Config{Timeout: time.Second, Clock: clk}
	if opts.radarr != nil {
		srv := httptest.NewServer(opts.radarr)
		t.Cleanup(srv.Close)
		radarrCfg.BaseURL, radarrCfg.APIKey = srv.URL, "key"
	}
	plexCfg := plex.Config{Timeout: time.Second}
	if opts.plex != nil {
		srv := httptest.NewServer(opts.plex)
		t.Cleanup(srv.Close)
		plexCfg.BaseURL, plexCfg.Token = srv.URL, "token"
	}

	sched := scheduler.New(clk, logger)
	runner := &fakeRunner{}

	b := newBot(BotDeps{
		Config:    store,
		DB:        db,
		Scheduler: sched,
		Power:     power.NewController(opts.goos, runner, logger),
		Radarr:    arr.NewClient(arr.Radarr, radarrCfg, logger),
		Sonarr:    arr.NewClient(arr.Sonarr, arr.Config{Timeout: time.Second, Clock: clk}, logger),
		Plex:      plex.NewClient(plexCfg, logger),
		Clock:     clk,
		Formatter: formatter.NewTelegramFormatter(),
		Logger:    logger,
	})
	api := newFakeAPI()
	b.attach(api, surface.WithSleep(func(context.Context, time.Duration) error { return nil }))

	return &harness{bot: b, api: api, db: db, clock: clk, sched: sched, runner: runner}
}

func (h *harness) message(chatID int64, msgID int, text string) {
	update := &models.Update{Message: &models.Message{
		ID:   msgID,
		Chat: models.Chat{ID: chatID},
		Text: text,
	}}
	next := h.bot.defaultHandler
	switch text {
	case "/start", "/home":
		next = h.bot.handleStart
	case "/settings":
		next = h.bot.handleSettings
	case "/status":
		next = h.bot.handleStatus
	}
	h.bot.adminOnly(next)(context.Background(), nil, update)
}

func (h *harness) press(chatID int64, token string) {
	update := &models.Update{CallbackQuery: &models.CallbackQuery{
		ID:   "cb-" + token,
		Data: token,
		Message: models.MaybeInaccessibleMessage{
			Message: &models.Message{ID: 1, Chat: models.Chat{ID: chatID}},
		},
	}}
	h.bot.adminOnly(h.bot.handleCallback)(context.Background(), nil, update)
}

func (h *harness) last(role surface.Role) string {
	content, _ := h.bot.surfaces.Get(context.Background(), adminChat).Last(role)
	return content.Text
}

// shown returns what the chat currently displays in role
func (h *harness) shown(role surface.Role) string {
	id := h.bot.surfaces.Get(context.Background(), adminChat).MessageID(role)
	return h.api.text(id)
}

func queueHandler(count int, queueCalls *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v3/queue":
			queueCalls.Add(1)
			records := make([]string, 0, count)
			for i := 1; i <= count; i++ {
				records = append(records, fmt.Sprintf(
					`{"id":%d,"title":"release.%d","status":"downloading","size":100,"sizeleft":50,"movie":{"title":"Movie %d","year":2000}}`,
					40+i, i, i))
			}
			fmt.Fprintf(w, `{"totalRecords":%d,"records":[%s]}`, count, strings.Join(records, ","))
		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/v3/queue/"):
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message":"Item is locked by the download client"}`))
		default:
			_, _ = w.Write([]byte(`{"version":"5.0.0"}`))
		}
	}
}

func TestStartSendsMenuThenGreeting(t *testing.T) {
	h := newHarness(t, nil, nil)

	h.message(adminChat, 7, "/start")

	require.Len(t, h.api.sent, 2)
	assert.Contains(t, h.api.sent[0].Text, "Media control")
	assert.NotNil(t, h.api.sent[0].ReplyMarkup)
	assert.Equal(t, formatter.Greeting, h.api.sent[1].Text)
	assert.Contains(t, h.api.deleted, 7)

	slots, err := h.db.GetSlots(context.Background(), adminChat)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"menu": 101, "status": 102}, slots)
}

func TestStartTwiceReplacesSlots(t *testing.T) {
	h := newHarness(t, nil, nil)

	h.message(adminChat, 7, "/start")
	h.message(adminChat, 8, "/home")

	slots, err := h.db.GetSlots(context.Background(), adminChat)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"menu": 103, "status": 104}, slots)
	assert.Subset(t, h.api.deleted, []int{7, 8, 101, 102})
}

func TestUnauthorizedChatIsRejected(t *testing.T) {
	h := newHarness(t, nil, nil)

	h.message(999, 5, "/start")

	require.Len(t, h.api.sent, 1)
	assert.Equal(t, int64(999), h.api.sent[0].ChatID)
	assert.Equal(t, formatter.AccessDenied, h.api.sent[0].Text)
	assert.Equal(t, []int{5}, h.api.deleted)

	for _, chat := range []int64{999, adminChat} {
		slots, err := h.db.GetSlots(context.Background(), chat)
		require.NoError(t, err)
		assert.Empty(t, slots)
	}
}

func TestUnauthorizedCallbackIsAnsweredOnly(t *testing.T) {
	h := newHarness(t, nil, nil)

	h.press(999, appmodels.CallbackPCShutdown)

	require.Len(t, h.api.answered, 1)
	assert.Equal(t, formatter.AccessDenied, h.api.answered[0].Text)
	assert.True(t, h.api.answered[0].ShowAlert)
	assert.Empty(t, h.api.sent)
	assert.Equal(t, "idle", h.bot.confirm.State(999))
}

func TestUnknownTokenShowsUnknownCommand(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.message(adminChat, 7, "/start")

	h.press(adminChat, "definitely_not_a_button")

	assert.Equal(t, formatter.UnknownCommand, h.shown(surface.RoleStatus))
	assert.Contains(t, h.shown(surface.RoleMenu), "Media control")
}

func TestUnconfiguredServiceFallsBackToMainMenu(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.message(adminChat, 7, "/start")

	h.press(adminChat, appmodels.CallbackRadarrQueue)

	assert.Equal(t, formatter.NotConfigured(appmodels.ServiceRadarr), h.shown(surface.RoleStatus))
	assert.Contains(t, h.shown(surface.RoleMenu), "Media control")
}

func TestQueuePagingIsIdempotent(t *testing.T) {
	var queueCalls atomic.Int32
	h := newHarness(t, queueHandler(12, &queueCalls), nil)
	h.message(adminChat, 7, "/start")

	h.press(adminChat, appmodels.CallbackRadarrQueue)
	require.Contains(t, h.shown(surface.RoleMenu), "Movie 1 (2000)")
	assert.Equal(t, int32(1), queueCalls.Load())

	before := h.api.editCount()
	next := appmodels.PageToken(appmodels.SurfaceRadarrQueue, 2)
	h.press(adminChat, next)
	h.press(adminChat, next)

	assert.LessOrEqual(t, h.api.editCount()-before, 2)
	menu := h.shown(surface.RoleMenu)
	assert.Contains(t, menu, "Movie 6 (2000)")
	assert.Contains(t, menu, "Movie 10 (2000)")
	assert.NotContains(t, menu, "Movie 1 (2000)")
	assert.NotContains(t, menu, "Movie 11 (2000)")
	assert.Equal(t, int32(1), queueCalls.Load(), "page turns are served from the cache")

	h.press(adminChat, appmodels.RefreshToken(appmodels.SurfaceRadarrQueue, 3))
	assert.Contains(t, h.shown(surface.RoleMenu), "Movie 12 (2000)")
	assert.Equal(t, int32(2), queueCalls.Load())
}

func TestQueueRemoveConflictKeepsItem(t *testing.T) {
	var queueCalls atomic.Int32
	h := newHarness(t, queueHandler(1, &queueCalls), nil)
	h.message(adminChat, 7, "/start")
	h.press(adminChat, appmodels.CallbackRadarrQueue)

	h.press(adminChat, appmodels.Int64Token(appmodels.PrefixRadarrQueueRemove, 41))

	assert.Equal(t, formatter.Rejected(appmodels.ServiceRadarr, "Item is locked by the download client"), h.shown(surface.RoleStatus))
	assert.Contains(t, h.shown(surface.RoleMenu), "Movie 1 (2000)")
	assert.Equal(t, int32(2), queueCalls.Load(), "the queue is reloaded after the attempt")

	records, err := h.db.RecentActions(context.Background(), adminChat, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "radarr_queue_remove", records[0].Action)
	assert.True(t, strings.HasPrefix(records[0].Outcome, "failed"))
}

func TestShutdownConfirmSchedulesExecution(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.message(adminChat, 7, "/start")
	h.press(adminChat, appmodels.CallbackPCMenu)

	h.press(adminChat, appmodels.CallbackPCShutdown)
	assert.Equal(t, "armed(shutdown)", h.bot.confirm.State(adminChat))
	assert.Equal(t, formatter.PowerArmed(appmodels.ActionShutdown, 30*time.Second), h.shown(surface.RoleStatus))
	assert.Equal(t, "Press SHUTDOWN again within 30s to confirm.", h.shown(surface.RoleStatus))
	assert.Contains(t, h.shown(surface.RoleMenu), "waiting for confirmation")

	h.clock.Advance(10 * time.Second)
	confirmedAt := h.clock.Now()
	h.press(adminChat, appmodels.CallbackPCShutdown)

	jobs := h.sched.JobsByName(confirm.ExecJobName(appmodels.ActionShutdown, adminChat))
	require.Len(t, jobs, 1)
	assert.Equal(t, confirmedAt.Add(13*time.Second), jobs[0].RunAt)
	assert.Empty(t, h.sched.JobsByName(confirm.TimeoutJobName(adminChat)))
	assert.Equal(t, "idle", h.bot.confirm.State(adminChat))
	assert.Equal(t, "PC will be SHUT DOWN in approx. 15 seconds...", h.shown(surface.RoleStatus))
	assert.Contains(t, h.shown(surface.RoleMenu), "Media control")

	h.clock.Advance(12 * time.Second)
	assert.Zero(t, h.runner.startedCount())
	h.clock.Advance(time.Second)
	require.Equal(t, 1, h.runner.startedCount())
	assert.Equal(t, []string{"-c", "sleep 15 && sudo shutdown -h now"}, h.runner.started[0].Args)

	// The cancelled timeout never reports an expiry
	h.clock.Advance(time.Minute)
	assert.Equal(t, "PC will be SHUT DOWN in approx. 15 seconds...", h.shown(surface.RoleStatus))
}

func TestOtherPowerActionSupersedes(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.message(adminChat, 7, "/start")
	h.press(adminChat, appmodels.CallbackPCMenu)

	h.press(adminChat, appmodels.CallbackPCShutdown)
	h.press(adminChat, appmodels.CallbackPCRestart)

	assert.Equal(t, "idle", h.bot.confirm.State(adminChat))
	assert.Equal(t, "Cancelled pending SHUTDOWN.", h.shown(surface.RoleStatus))
	assert.Empty(t, h.sched.JobsByName(confirm.TimeoutJobName(adminChat)))
	assert.NotContains(t, h.shown(surface.RoleMenu), "waiting for confirmation")

	h.press(adminChat, appmodels.CallbackPCRestart)
	assert.Equal(t, "armed(restart)", h.bot.confirm.State(adminChat))
	assert.Equal(t, formatter.PowerArmed(appmodels.ActionRestart, 30*time.Second), h.shown(surface.RoleStatus))
	assert.Zero(t, h.runner.startedCount())
}

func TestUnconfirmedPressExpires(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.message(adminChat, 7, "/start")
	h.press(adminChat, appmodels.CallbackPCMenu)
	h.press(adminChat, appmodels.CallbackPCShutdown)

	h.clock.Advance(30 * time.Second)

	assert.Equal(t, "idle", h.bot.confirm.State(adminChat))
	assert.Equal(t, formatter.PowerExpired(appmodels.ActionShutdown), h.shown(surface.RoleStatus))
	menu := h.shown(surface.RoleMenu)
	assert.Contains(t, menu, "PC control")
	assert.NotContains(t, menu, "waiting for confirmation")

	// A press after expiry arms again instead of confirming
	h.press(adminChat, appmodels.CallbackPCShutdown)
	assert.Equal(t, "armed(shutdown)", h.bot.confirm.State(adminChat))
	assert.Zero(t, h.runner.startedCount())
}

func TestMediaKeysHiddenWhenDisabled(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.message(adminChat, 7, "/start")

	h.press(adminChat, appmodels.Token(appmodels.PrefixPC, string(appmodels.KeyPlayPause)))

	assert.Equal(t, formatter.NotConfigured(appmodels.ServiceMedia), h.shown(surface.RoleStatus))
}

func TestFlowTextWithoutFlowIsIgnored(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.message(adminChat, 7, "/start")
	sent := len(h.api.sent)

	h.message(adminChat, 9, "hello there")

	assert.Len(t, h.api.sent, sent)
	assert.Contains(t, h.api.deleted, 9)
	assert.Equal(t, formatter.Greeting, h.shown(surface.RoleStatus))
}

func TestUnknownSlashCommand(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.message(adminChat, 7, "/start")

	h.message(adminChat, 9, "/frobnicate")

	assert.Equal(t, formatter.UnknownCommand, h.shown(surface.RoleStatus))
	assert.Contains(t, h.api.deleted, 9)
}

func TestFlowCancelReturnsToMainMenu(t *testing.T) {
	var queueCalls atomic.Int32
	h := newHarness(t, queueHandler(0, &queueCalls), nil)
	h.message(adminChat, 7, "/start")

	h.press(adminChat, appmodels.CallbackRadarrAdd)
	_, armed := h.bot.flow.Armed(adminChat)
	require.True(t, armed)

	h.press(adminChat, appmodels.CallbackFlowCancel)
	_, armed = h.bot.flow.Armed(adminChat)
	assert.False(t, armed)
	assert.Equal(t, formatter.FlowCancelled, h.shown(surface.RoleStatus))
	assert.Contains(t, h.shown(surface.RoleMenu), "Media control")
}

func TestStatusCommandListsHealth(t *testing.T) {
	var queueCalls atomic.Int32
	h := newHarness(t, queueHandler(0, &queueCalls), nil)
	h.message(adminChat, 7, "/start")

	h.message(adminChat, 8, "/status")

	status := h.shown(surface.RoleStatus)
	assert.Contains(t, status, "idle")
	assert.Contains(t, h.api.deleted, 8)
}
