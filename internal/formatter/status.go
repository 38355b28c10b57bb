package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

// Fixed replies
const (
	AccessDenied   = "Access denied"
	UnknownCommand = "Unknown command"
	Greeting       = "👋 Ready. Pick a service below."
	OperationFail  = "❌ Operation failed. See the bot log for details."
	FlowCancelled  = "Cancelled."
	SettingsLoaded = "✅ Settings reloaded."
	TextIgnored    = "ℹ️ Nothing is waiting for text. Use the menu buttons."
)

// actionWord returns the capitalized action as used in power messages
func actionWord(action models.PowerAction) string {
	return strings.ToUpper(string(action))
}

// PowerArmed is shown after the first press of a power action
func PowerArmed(action models.PowerAction, window time.Duration) string {
	return fmt.Sprintf("Press %s again within %s to confirm.", actionWord(action), seconds(window))
}

// PowerCancelled is shown when the other action supersedes a pending one
func PowerCancelled(previous models.PowerAction) string {
	return fmt.Sprintf("Cancelled pending %s.", actionWord(previous))
}

// PowerExpired is shown when the confirmation window passes
func PowerExpired(action models.PowerAction) string {
	return fmt.Sprintf("⌛ %s was not confirmed in time.", actionWord(action))
}

// PowerScheduled is shown after confirmation
func PowerScheduled(action models.PowerAction, osDelay time.Duration) string {
	verb := "SHUT DOWN"
	if action == models.ActionRestart {
		verb = "RESTARTED"
	}
	return fmt.Sprintf("PC will be %s in approx. %d seconds...", verb, int(osDelay/time.Second))
}

// PowerFailed is shown when the power command could not run
func PowerFailed(action models.PowerAction, err error) string {
	return fmt.Sprintf("❌ %s failed: %s", actionWord(action), EscapeHTML(err.Error()))
}

// PowerUnsupported is shown when the host OS has no power command
func PowerUnsupported(action models.PowerAction, goos string) string {
	return fmt.Sprintf("⚠️ %s is not supported on this host (%s).", actionWord(action), EscapeHTML(goos))
}

// Done reports a completed operation
func Done(text string) string {
	return "✅ " + text
}

// Info reports something that is not an error
func Info(text string) string {
	return "ℹ️ " + text
}

// Rejected reports a service refusing an operation
func Rejected(service, reason string) string {
	return fmt.Sprintf("⚠️ %s: %s", ServiceName(service), EscapeHTML(reason))
}

// Unreachable reports a service that failed or timed out
func Unreachable(service string) string {
	return fmt.Sprintf("⚠️ %s did not respond. Try again later.", ServiceName(service))
}

// NotConfigured reports a service that is not set up or down
func NotConfigured(service string) string {
	return fmt.Sprintf("⚠️ %s is not available.", ServiceName(service))
}

func seconds(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("%ds", int(d/time.Second))
	}
	return d.String()
}
