// Package power builds and runs host power and media-key commands.
package power

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

// ErrUnsupportedOS is returned when the host OS has no known command shape
var ErrUnsupportedOS = errors.New("unsupported host OS")

// Command is a prepared OS invocation
type Command struct {
	Name string
	Args []string
	// Detached commands are started and not waited for
	Detached bool
}

// String renders the command for logs
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// PowerCommand builds the shutdown or restart invocation for goos that
// takes effect after delay.
//
// POSIX hosts get "sudo shutdown -h|-r +M" with M whole minutes; when M is
// zero the delay is spent in a detached shell sleep before "shutdown now",
// so no scheduled-shutdown banner is shown. Windows gets "shutdown /s|/r /t N /f".
func PowerCommand(goos string, action models.PowerAction, delay time.Duration) (Command, error) {
	seconds := int(delay / time.Second)
	if seconds < 0 {
		seconds = 0
	}

	switch {
	case isPOSIX(goos):
		flag, err := posixFlag(action)
		if err != nil {
			return Command{}, err
		}
		minutes := seconds / 60
		if minutes > 0 {
			return Command{Name: "sudo", Args: []string{"shutdown", flag, "+" + strconv.Itoa(minutes)}}, nil
		}
		return Command{
			Name:     "sh",
			Args:     []string{"-c", fmt.Sprintf("sleep %d && sudo shutdown %s now", seconds, flag)},
			Detached: true,
		}, nil
	case goos == "windows":
		flag, err := windowsFlag(action)
		if err != nil {
			return Command{}, err
		}
		return Command{Name: "shutdown", Args: []string{flag, "/t", strconv.Itoa(seconds), "/f"}}, nil
	default:
		return Command{}, fmt.Errorf("%w: %s", ErrUnsupportedOS, goos)
	}
}

func isPOSIX(goos string) bool {
	switch goos {
	case "linux", "darwin", "freebsd", "openbsd", "netbsd", "dragonfly", "solaris", "illumos":
		return true
	}
	return false
}

func posixFlag(action models.PowerAction) (string, error) {
	switch action {
	case models.ActionShutdown:
		return "-h", nil
	case models.ActionRestart:
		return "-r", nil
	}
	return "", fmt.Errorf("unknown power action %q", action)
}

func windowsFlag(action models.PowerAction) (string, error) {
	switch action {
	case models.ActionShutdown:
		return "/s", nil
	case models.ActionRestart:
		return "/r", nil
	}
	return "", fmt.Errorf("unknown power action %q", action)
}

// MediaCommand builds the invocation that presses key on goos
func MediaCommand(goos string, key models.MediaKey) (Command, error) {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		switch key {
		case models.KeyPlayPause:
			return Command{Name: "playerctl", Args: []string{"play-pause"}}, nil
		case models.KeyNext:
			return Command{Name: "playerctl", Args: []string{"next"}}, nil
		case models.KeyPrevious:
			return Command{Name: "playerctl", Args: []string{"previous"}}, nil
		case models.KeyVolumeUp:
			return Command{Name: "pactl", Args: []string{"set-sink-volume", "@DEFAULT_SINK@", "+5%"}}, nil
		case models.KeyVolumeDown:
			return Command{Name: "pactl", Args: []string{"set-sink-volume", "@DEFAULT_SINK@", "-5%"}}, nil
		case models.KeyMute:
			return Command{Name: "pactl", Args: []string{"set-sink-mute", "@DEFAULT_SINK@", "toggle"}}, nil
		}
	case "darwin":
		script := map[models.MediaKey]string{
			models.KeyPlayPause:  `tell application "Music" to playpause`,
			models.KeyNext:       `tell application "Music" to next track`,
			models.KeyPrevious:   `tell application "Music" to previous track`,
			models.KeyVolumeUp:   `set volume output volume ((output volume of (get volume settings)) + 6)`,
			models.KeyVolumeDown: `set volume output volume ((output volume of (get volume settings)) - 6)`,
			models.KeyMute:       `set volume output muted not (output muted of (get volume settings))`,
		}[key]
		if script != "" {
			return Command{Name: "osascript", Args: []string{"-e", script}}, nil
		}
	case "windows":
		// Virtual key codes for the media keys
		code := map[models.MediaKey]int{
			models.KeyMute:       173,
			models.KeyVolumeDown: 174,
			models.KeyVolumeUp:   175,
			models.KeyNext:       176,
			models.KeyPrevious:   177,
			models.KeyPlayPause:  179,
		}[key]
		if code != 0 {
			return Command{Name: "powershell", Args: []string{
				"-NoProfile", "-Command",
				fmt.Sprintf("(New-Object -ComObject WScript.Shell).SendKeys([char]%d)", code),
			}}, nil
		}
	default:
		return Command{}, fmt.Errorf("%w: %s", ErrUnsupportedOS, goos)
	}
	return Command{}, fmt.Errorf("unknown media key %q", key)
}
