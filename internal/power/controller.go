package power

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

// Runner executes OS commands
type Runner interface {
	Run(ctx context.Context, cmd Command) error
	Start(cmd Command) error
	LookPath(file string) (string, error)
}

// Controller drives the host's power and media facilities
type Controller struct {
	goos   string
	runner Runner
	logger *slog.Logger
}

// NewController creates a controller for goos using runner
func NewController(goos string, runner Runner, logger *slog.Logger) *Controller {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Controller{
		goos:   goos,
		runner: runner,
		logger: logger.With("component", "power"),
	}
}

// GOOS returns the host OS the controller builds commands for
func (c *Controller) GOOS() string {
	return c.goos
}

// PowerCommand prepares the shutdown or restart command for this host
func (c *Controller) PowerCommand(action models.PowerAction, delay time.Duration) (Command, error) {
	return PowerCommand(c.goos, action, delay)
}

// Run executes a prepared command
func (c *Controller) Run(ctx context.Context, cmd Command) error {
	c.logger.Info("running host command", "command", cmd.String(), "detached", cmd.Detached)
	if cmd.Detached {
		if err := c.runner.Start(cmd); err != nil {
			return fmt.Errorf("failed to start %s: %w", cmd.Name, err)
		}
		return nil
	}
	if err := c.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("failed to run %s: %w", cmd.Name, err)
	}
	return nil
}

// PressKey sends a media key to the host
func (c *Controller) PressKey(ctx context.Context, key models.MediaKey) error {
	cmd, err := MediaCommand(c.goos, key)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.Run(ctx, cmd)
}

// MediaAvailable reports whether playback keys can be sent
func (c *Controller) MediaAvailable() bool {
	cmd, err := MediaCommand(c.goos, models.KeyPlayPause)
	if err != nil {
		return false
	}
	_, err = c.runner.LookPath(cmd.Name)
	return err == nil
}

// VolumeAvailable reports whether volume and mute keys can be sent
func (c *Controller) VolumeAvailable() bool {
	cmd, err := MediaCommand(c.goos, models.KeyMute)
	if err != nil {
		return false
	}
	_, err = c.runner.LookPath(cmd.Name)
	return err == nil
}

// PowerSupported reports whether the host has a known power command shape
func (c *Controller) PowerSupported() bool {
	_, err := PowerCommand(c.goos, models.ActionShutdown, time.Minute)
	return err == nil
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// Run runs cmd and waits for it
func (ExecRunner) Run(ctx context.Context, cmd Command) error {
	out, err := exec.CommandContext(ctx, cmd.Name, cmd.Args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(out))
	}
	return nil
}

// Start starts cmd without waiting for it
func (ExecRunner) Start(cmd Command) error {
	c := exec.Command(cmd.Name, cmd.Args...)
	if err := c.Start(); err != nil {
		return err
	}
	go func() { _ = c.Wait() }()
	return nil
}

// LookPath resolves an executable on PATH
func (ExecRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}
