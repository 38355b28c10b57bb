// Package confirm implements the two-phase confirmation for destructive
// host actions: arm, then confirm within a window, with supersede and
// expiry returning to idle.
package confirm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hryarih32/mediacatalogbot/internal/clock"
	"github.com/hryarih32/mediacatalogbot/internal/power"
	"github.com/hryarih32/mediacatalogbot/internal/scheduler"
	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

// DefaultWindow is the time allowed between arm and confirm
const DefaultWindow = 30 * time.Second

// OutcomeKind is the transition a press caused
type OutcomeKind int

const (
	Armed OutcomeKind = iota + 1
	Confirmed
	Superseded
)

// Outcome describes the result of a press
type Outcome struct {
	Kind     OutcomeKind
	Action   models.PowerAction
	Previous models.PowerAction // set when Kind is Superseded
	Window   time.Duration
	ExecIn   time.Duration // delay of the execution job
	OSDelay  time.Duration // delay handed to the OS command
}

// Executor prepares and runs power commands
type Executor interface {
	PowerCommand(action models.PowerAction, delay time.Duration) (power.Command, error)
	Run(ctx context.Context, cmd power.Command) error
}

// Hooks are called from scheduler jobs
type Hooks struct {
	OnExpire   func(chatID int64, action models.PowerAction)
	OnExecuted func(chatID int64, action models.PowerAction, err error)
}

// Config for the confirmation machine
type Config struct {
	Window  time.Duration
	OSDelay time.Duration
}

type record struct {
	action  models.PowerAction
	armedAt time.Time
	timeout *scheduler.Job
}

// Machine holds at most one pending confirmation per chat
type Machine struct {
	sched   *scheduler.Scheduler
	exec    Executor
	clock   clock.Clock
	cfg     Config
	hooks   Hooks
	logger  *slog.Logger
	mu      sync.Mutex
	pending map[int64]*record
}

// New creates a confirmation machine
func New(cfg Config, sched *scheduler.Scheduler, exec Executor, clk clock.Clock, hooks Hooks, logger *slog.Logger) *Machine {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	return &Machine{
		sched:   sched,
		exec:    exec,
		clock:   clk,
		cfg:     cfg,
		hooks:   hooks,
		logger:  logger.With("component", "confirm"),
		pending: make(map[int64]*record),
	}
}

// TimeoutJobName names the expiry job of a chat
func TimeoutJobName(chatID int64) string {
	return fmt.Sprintf("clear_pending_%d", chatID)
}

// ExecJobName names the deferred execution job of an action in a chat
func ExecJobName(action models.PowerAction, chatID int64) string {
	return fmt.Sprintf("exec_power_%s_%d", action, chatID)
}

// BotDelay is the delay before the execution job fires: two seconds ahead
// of the OS delay, never less than a second.
func BotDelay(osDelay time.Duration) time.Duration {
	d := osDelay - 2*time.Second
	if d < time.Second {
		d = time.Second
	}
	return d
}

// Press applies a press of action in chatID
func (m *Machine) Press(ctx context.Context, chatID int64, action models.PowerAction) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.pending[chatID]
	if rec != nil && m.clock.Now().Sub(rec.armedAt) > m.cfg.Window {
		// Window elapsed but the expiry job has not run yet
		m.clearLocked(chatID)
		rec = nil
	}

	switch {
	case rec == nil:
		return m.armLocked(chatID, action)
	case rec.action == action:
		return m.confirmLocked(chatID, action)
	default:
		m.clearLocked(chatID)
		m.logger.Info("pending action superseded", "chat_id", chatID, "previous", rec.action, "pressed", action)
		return Outcome{Kind: Superseded, Action: action, Previous: rec.action}, nil
	}
}

func (m *Machine) armLocked(chatID int64, action models.PowerAction) (Outcome, error) {
	name := TimeoutJobName(chatID)
	m.sched.CancelByName(name)

	rec := &record{action: action, armedAt: m.clock.Now()}
	job, err := m.sched.RunOnce(name, m.cfg.Window, action, func(ctx context.Context, job *scheduler.Job) {
		m.expire(chatID, job)
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to schedule confirmation timeout: %w", err)
	}
	rec.timeout = job
	m.pending[chatID] = rec

	m.logger.Info("power action armed", "chat_id", chatID, "action", action, "window", m.cfg.Window)
	return Outcome{Kind: Armed, Action: action, Window: m.cfg.Window}, nil
}

func (m *Machine) confirmLocked(chatID int64, action models.PowerAction) (Outcome, error) {
	m.clearLocked(chatID)

	cmd, err := m.exec.PowerCommand(action, m.cfg.OSDelay)
	if err != nil {
		return Outcome{}, err
	}

	delay := BotDelay(m.cfg.OSDelay)
	_, err = m.sched.RunOnce(ExecJobName(action, chatID), delay, cmd, func(ctx context.Context, job *scheduler.Job) {
		runErr := m.exec.Run(ctx, cmd)
		if runErr != nil {
			m.logger.Error("power command failed", "chat_id", chatID, "action", action, "error", runErr)
		}
		if m.hooks.OnExecuted != nil {
			m.hooks.OnExecuted(chatID, action, runErr)
		}
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to schedule power action: %w", err)
	}

	m.logger.Info("power action confirmed", "chat_id", chatID, "action", action, "command", cmd.String(), "exec_in", delay)
	return Outcome{Kind: Confirmed, Action: action, ExecIn: delay, OSDelay: m.cfg.OSDelay}, nil
}

// expire clears the pending record if it is still the one that scheduled job
func (m *Machine) expire(chatID int64, job *scheduler.Job) {
	m.mu.Lock()
	rec := m.pending[chatID]
	if rec == nil || rec.timeout != job {
		m.mu.Unlock()
		return
	}
	delete(m.pending, chatID)
	m.mu.Unlock()

	m.logger.Info("pending action expired", "chat_id", chatID, "action", rec.action)
	if m.hooks.OnExpire != nil {
		m.hooks.OnExpire(chatID, rec.action)
	}
}

// clearLocked drops the pending record and its timeout job. Caller holds mu.
func (m *Machine) clearLocked(chatID int64) {
	m.sched.CancelByName(TimeoutJobName(chatID))
	delete(m.pending, chatID)
}

// Reset returns chatID to idle, cancelling any timeout job
func (m *Machine) Reset(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked(chatID)
}

// Pending returns the armed action of chatID, if any
func (m *Machine) Pending(chatID int64) (models.PowerAction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.pending[chatID]
	if !ok {
		return "", false
	}
	return rec.action, true
}

// State describes the machine state of chatID: "idle" or "armed(<action>)"
func (m *Machine) State(chatID int64) string {
	if action, ok := m.Pending(chatID); ok {
		return fmt.Sprintf("armed(%s)", action)
	}
	return "idle"
}

// Configure replaces the window and OS delay for later presses
func (m *Machine) Configure(cfg Config) {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
}
