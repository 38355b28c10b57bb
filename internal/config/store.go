package config

import (
	"log/slog"
	"sync"
)

// Store holds the current configuration. Current is the single accessor
// components use, so a reload is visible everywhere at once.
type Store struct {
	envFile string
	logger  *slog.Logger

	mu    sync.RWMutex
	cfg   *Config
	hooks []func(*Config)
}

// NewStore loads the configuration from envFile and the environment
func NewStore(envFile string, logger *slog.Logger) (*Store, error) {
	cfg, err := Load(envFile)
	if err != nil {
		return nil, err
	}
	return &Store{
		envFile: envFile,
		logger:  logger.With("component", "config"),
		cfg:     cfg,
	}, nil
}

// EnvFile returns the watched env file
func (s *Store) EnvFile() string {
	return s.envFile
}

// Current returns the active configuration. Callers must not modify it.
func (s *Store) Current() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// OnReload registers fn to run after every successful reload
func (s *Store) OnReload(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Reload re-reads the configuration. On error the active configuration
// is kept.
func (s *Store) Reload() (*Config, error) {
	cfg, err := Load(s.envFile)
	if err != nil {
		s.logger.Error("failed to reload config", "error", err)
		return nil, err
	}

	s.mu.Lock()
	old := s.cfg
	s.cfg = cfg
	hooks := append([]func(*Config){}, s.hooks...)
	s.mu.Unlock()

	if old.TelegramToken != cfg.TelegramToken || old.AdminChatID != cfg.AdminChatID ||
		old.DatabasePath != cfg.DatabasePath || old.Workers != cfg.Workers {
		s.logger.Warn("some changed settings apply after a restart",
			"keys", "TELEGRAM_BOT_TOKEN, ADMIN_CHAT_ID, DATABASE_PATH, WORKERS")
	}
	s.logger.Info("config reloaded")

	for _, fn := range hooks {
		fn(cfg)
	}
	return cfg, nil
}
