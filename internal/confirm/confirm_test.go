package confirm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hryarih32/mediacatalogbot/internal/clock"
	"github.com/hryarih32/mediacatalogbot/internal/power"
	"github.com/hryarih32/mediacatalogbot/internal/scheduler"
	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

const chatID int64 = 42

type fakeExecutor struct {
	goos string
	mu   sync.Mutex
	ran  []power.Command
}

func (f *fakeExecutor) PowerCommand(action models.PowerAction, delay time.Duration) (power.Command, error) {
	return power.PowerCommand(f.goos, action, delay)
}

func (f *fakeExecutor) Run(ctx context.Context, cmd power.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ran = append(f.ran, cmd)
	return nil
}

type harness struct {
	m       *Machine
	clk     *clock.FakeClock
	sched   *scheduler.Scheduler
	exec    *fakeExecutor
	expired []models.PowerAction
	done    []models.PowerAction
}

func newHarness(t *testing.T, goos string) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		clk:  clock.Fake(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)),
		exec: &fakeExecutor{goos: goos},
	}
	h.sched = scheduler.New(h.clk, logger)
	h.m = New(Config{Window: 30 * time.Second, OSDelay: 15 * time.Second}, h.sched, h.exec, h.clk, Hooks{
		OnExpire:   func(_ int64, a models.PowerAction) { h.expired = append(h.expired, a) },
		OnExecuted: func(_ int64, a models.PowerAction, _ error) { h.done = append(h.done, a) },
	}, logger)
	return h
}

func (h *harness) execJobs(action models.PowerAction) int {
	return len(h.sched.JobsByName(ExecJobName(action, chatID)))
}

func TestBotDelay(t *testing.T) {
	assert.Equal(t, 13*time.Second, BotDelay(15*time.Second))
	assert.Equal(t, time.Second, BotDelay(2*time.Second))
	assert.Equal(t, time.Second, BotDelay(0))
	assert.Equal(t, 58*time.Second, BotDelay(time.Minute))
}

func TestJobNames(t *testing.T) {
	assert.Equal(t, "clear_pending_42", TimeoutJobName(42))
	assert.Equal(t, "exec_power_restart_42", ExecJobName(models.ActionRestart, 42))
}

func TestArmThenConfirm(t *testing.T) {
	h := newHarness(t, "linux")
	ctx := context.Background()

	out, err := h.m.Press(ctx, chatID, models.ActionShutdown)
	require.NoError(t, err)
	assert.Equal(t, Armed, out.Kind)
	assert.Equal(t, 30*time.Second, out.Window)
	assert.Len(t, h.sched.JobsByName(TimeoutJobName(chatID)), 1)

	h.clk.Advance(10 * time.Second)

	out, err = h.m.Press(ctx, chatID, models.ActionShutdown)
	require.NoError(t, err)
	assert.Equal(t, Confirmed, out.Kind)
	assert.Equal(t, 13*time.Second, out.ExecIn)
	assert.Equal(t, 15*time.Second, out.OSDelay)

	assert.Empty(t, h.sched.JobsByName(TimeoutJobName(chatID)), "timeout job must be cancelled")
	assert.Equal(t, 1, h.execJobs(models.ActionShutdown))
	_, armed := h.m.Pending(chatID)
	assert.False(t, armed)

	h.clk.Advance(13 * time.Second)
	require.Len(t, h.exec.ran, 1)
	assert.Equal(t, "sleep 15 && sudo shutdown -h now", h.exec.ran[0].Args[1])
	assert.Equal(t, []models.PowerAction{models.ActionShutdown}, h.done)
	assert.Empty(t, h.expired)
}

func TestArmThenExpire(t *testing.T) {
	h := newHarness(t, "linux")

	_, err := h.m.Press(context.Background(), chatID, models.ActionShutdown)
	require.NoError(t, err)

	h.clk.Advance(30 * time.Second)

	assert.Equal(t, []models.PowerAction{models.ActionShutdown}, h.expired)
	_, armed := h.m.Pending(chatID)
	assert.False(t, armed)
	assert.Equal(t, 0, h.execJobs(models.ActionShutdown))

	h.clk.Advance(time.Hour)
	assert.Empty(t, h.exec.ran)
}

func TestSupersedeDoesNotArmNewAction(t *testing.T) {
	h := newHarness(t, "linux")
	ctx := context.Background()

	_, err := h.m.Press(ctx, chatID, models.ActionShutdown)
	require.NoError(t, err)

	out, err := h.m.Press(ctx, chatID, models.ActionRestart)
	require.NoError(t, err)
	assert.Equal(t, Superseded, out.Kind)
	assert.Equal(t, models.ActionShutdown, out.Previous)

	_, armed := h.m.Pending(chatID)
	assert.False(t, armed)
	assert.Empty(t, h.sched.JobsByName(TimeoutJobName(chatID)))
	assert.Equal(t, 0, h.execJobs(models.ActionShutdown))
	assert.Equal(t, 0, h.execJobs(models.ActionRestart))

	// Restart arms normally afterwards
	out, err = h.m.Press(ctx, chatID, models.ActionRestart)
	require.NoError(t, err)
	assert.Equal(t, Armed, out.Kind)
	action, armed := h.m.Pending(chatID)
	assert.True(t, armed)
	assert.Equal(t, models.ActionRestart, action)

	h.clk.Advance(time.Hour)
	assert.Empty(t, h.exec.ran)
	assert.Equal(t, []models.PowerAction{models.ActionRestart}, h.expired)
}

func TestStaleTimeoutDoesNotClearNewArm(t *testing.T) {
	h := newHarness(t, "linux")
	ctx := context.Background()

	_, _ = h.m.Press(ctx, chatID, models.ActionShutdown)
	_, _ = h.m.Press(ctx, chatID, models.ActionRestart) // supersede
	h.clk.Advance(20 * time.Second)
	_, _ = h.m.Press(ctx, chatID, models.ActionShutdown) // re-arm

	// The first timeout would have fired at 30s; the new arm expires at 50s
	h.clk.Advance(15 * time.Second)
	action, armed := h.m.Pending(chatID)
	assert.True(t, armed)
	assert.Equal(t, models.ActionShutdown, action)
	assert.Empty(t, h.expired)

	h.clk.Advance(15 * time.Second)
	assert.Equal(t, []models.PowerAction{models.ActionShutdown}, h.expired)
}

func TestUnsupportedOSAbortsConfirmation(t *testing.T) {
	h := newHarness(t, "plan9")
	ctx := context.Background()

	_, err := h.m.Press(ctx, chatID, models.ActionRestart)
	require.NoError(t, err)

	_, err = h.m.Press(ctx, chatID, models.ActionRestart)
	assert.ErrorIs(t, err, power.ErrUnsupportedOS)

	_, armed := h.m.Pending(chatID)
	assert.False(t, armed)
	assert.Empty(t, h.sched.JobsByName(TimeoutJobName(chatID)))
	assert.Equal(t, 0, h.execJobs(models.ActionRestart))
}

func TestResetCancelsTimeout(t *testing.T) {
	h := newHarness(t, "windows")

	_, _ = h.m.Press(context.Background(), chatID, models.ActionShutdown)
	h.m.Reset(chatID)

	assert.Empty(t, h.sched.JobsByName(TimeoutJobName(chatID)))
	h.clk.Advance(time.Minute)
	assert.Empty(t, h.expired)
}

func TestChatsAreIndependent(t *testing.T) {
	h := newHarness(t, "linux")
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		out, err := h.m.Press(ctx, i, models.ActionShutdown)
		require.NoError(t, err)
		assert.Equal(t, Armed, out.Kind, fmt.Sprintf("chat %d", i))
	}
	out, err := h.m.Press(ctx, 2, models.ActionShutdown)
	require.NoError(t, err)
	assert.Equal(t, Confirmed, out.Kind)

	_, armed := h.m.Pending(1)
	assert.True(t, armed)
	_, armed = h.m.Pending(2)
	assert.False(t, armed)
}

func TestStateAndConfigure(t *testing.T) {
	h := newHarness(t, "linux")
	ctx := context.Background()
	assert.Equal(t, "idle", h.m.State(chatID))

	h.m.Configure(Config{OSDelay: 90 * time.Second})
	out, err := h.m.Press(ctx, chatID, models.ActionRestart)
	require.NoError(t, err)
	assert.Equal(t, DefaultWindow, out.Window)
	assert.Equal(t, "armed(restart)", h.m.State(chatID))

	out, err = h.m.Press(ctx, chatID, models.ActionRestart)
	require.NoError(t, err)
	assert.Equal(t, 88*time.Second, out.ExecIn)

	h.clk.Advance(88 * time.Second)
	require.Len(t, h.exec.ran, 1)
	assert.Equal(t, "sudo shutdown -r +1", h.exec.ran[0].String())
}
