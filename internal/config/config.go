package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config application configuration
type Config struct {
	// Telegram
	TelegramToken string `env:"TELEGRAM_BOT_TOKEN,required,notEmpty"`
	AdminChatID   int64  `env:"ADMIN_CHAT_ID,required"` // The only chat the bot answers
	Workers       int    `env:"WORKERS" envDefault:"4"`

	// Database
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/mediabot.db"`

	// Library managers (optional)
	RadarrURL    string `env:"RADARR_URL"` // e.g., http://localhost:7878
	RadarrAPIKey string `env:"RADARR_API_KEY"`
	SonarrURL    string `env:"SONARR_URL"` // e.g., http://localhost:8989
	SonarrAPIKey string `env:"SONARR_API_KEY"`

	// Media server (optional)
	PlexURL   string `env:"PLEX_URL"` // e.g., http://localhost:32400
	PlexToken string `env:"PLEX_TOKEN"`

	// Service calls
	HTTPTimeout  time.Duration `env:"HTTP_TIMEOUT" envDefault:"15s"`
	HTTPRetries  int           `env:"HTTP_RETRIES" envDefault:"2"`
	ProbeTimeout time.Duration `env:"PROBE_TIMEOUT" envDefault:"3s"`

	// Host control
	PowerEnabled  bool          `env:"POWER_ENABLED" envDefault:"true"`
	MediaEnabled  bool          `env:"MEDIA_ENABLED" envDefault:"true"`
	PowerDelay    time.Duration `env:"POWER_DELAY" envDefault:"15s"`    // Delay handed to the OS command
	ConfirmWindow time.Duration `env:"CONFIRM_WINDOW" envDefault:"30s"` // Time to press a power button again

	// UI
	PageSize int `env:"PAGE_SIZE" envDefault:"5"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// RadarrEnabled returns true if Radarr is configured
func (c *Config) RadarrEnabled() bool {
	return c.RadarrURL != "" && c.RadarrAPIKey != ""
}

// SonarrEnabled returns true if Sonarr is configured
func (c *Config) SonarrEnabled() bool {
	return c.SonarrURL != "" && c.SonarrAPIKey != ""
}

// PlexEnabled returns true if Plex is configured
func (c *Config) PlexEnabled() bool {
	return c.PlexURL != "" && c.PlexToken != ""
}

// Validate checks values env tags cannot express
func (c *Config) Validate() error {
	var errs []error
	if c.PowerDelay < time.Second {
		errs = append(errs, fmt.Errorf("POWER_DELAY must be at least 1s, got %s", c.PowerDelay))
	}
	if c.ConfirmWindow <= 0 {
		errs = append(errs, fmt.Errorf("CONFIRM_WINDOW must be positive, got %s", c.ConfirmWindow))
	}
	if c.PageSize < 1 || c.PageSize > 20 {
		errs = append(errs, fmt.Errorf("PAGE_SIZE must be between 1 and 20, got %d", c.PageSize))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("WORKERS must be at least 1, got %d", c.Workers))
	}
	if c.HTTPRetries < 0 {
		errs = append(errs, fmt.Errorf("HTTP_RETRIES must not be negative, got %d", c.HTTPRetries))
	}
	return errors.Join(errs...)
}

// Load loads configuration from environment variables. Values in envFile
// (if it exists) are used for variables the environment does not set.
func Load(envFile string) (*Config, error) {
	vars := map[string]string{}
	if envFile != "" {
		fileVars, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}
	for k, v := range env.ToMap(os.Environ()) {
		vars[k] = v
	}

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Setting is one line of the settings screen
type Setting struct {
	Name  string
	Value string
}

// Settings returns the active settings with secrets masked
func (c *Config) Settings() []Setting {
	return []Setting{
		{"Admin chat", fmt.Sprint(c.AdminChatID)},
		{"Radarr", endpoint(c.RadarrURL, c.RadarrAPIKey)},
		{"Sonarr", endpoint(c.SonarrURL, c.SonarrAPIKey)},
		{"Plex", endpoint(c.PlexURL, c.PlexToken)},
		{"Power control", onOff(c.PowerEnabled)},
		{"Media keys", onOff(c.MediaEnabled)},
		{"Power delay", c.PowerDelay.String()},
		{"Confirm window", c.ConfirmWindow.String()},
		{"Page size", fmt.Sprint(c.PageSize)},
		{"HTTP timeout", c.HTTPTimeout.String()},
		{"HTTP retries", fmt.Sprint(c.HTTPRetries)},
		{"Log level", c.LogLevel},
	}
}

func endpoint(url, secret string) string {
	if url == "" {
		return "not configured"
	}
	return url + " (key " + Mask(secret) + ")"
}

// Mask hides all but the last four characters of a secret
func Mask(secret string) string {
	if secret == "" {
		return "missing"
	}
	r := []rune(secret)
	if len(r) <= 4 {
		return "****"
	}
	return "****" + string(r[len(r)-4:])
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
