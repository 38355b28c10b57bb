package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"

	"github.com/hryarih32/mediacatalogbot/internal/arr"
	"github.com/hryarih32/mediacatalogbot/internal/clock"
	"github.com/hryarih32/mediacatalogbot/internal/config"
	"github.com/hryarih32/mediacatalogbot/internal/database"
	"github.com/hryarih32/mediacatalogbot/internal/formatter"
	"github.com/hryarih32/mediacatalogbot/internal/plex"
	"github.com/hryarih32/mediacatalogbot/internal/power"
	"github.com/hryarih32/mediacatalogbot/internal/scheduler"
	"github.com/hryarih32/mediacatalogbot/internal/telegram"
)

// shutdownTimeout bounds the wait for running jobs on exit
const shutdownTimeout = 30 * time.Second

func main() {
	flags := pflag.NewFlagSet("mediabot", pflag.ContinueOnError)
	envFile := flags.String("env-file", ".env", "env file with the bot settings")
	logLevel := flags.String("log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	checkConfig := flags.Bool("check-config", false, "validate the configuration and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	// Load configuration
	store, err := config.NewStore(*envFile, slog.Default())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := store.Current()

	// Setup logger
	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	logger := setupLogger(level, cfg.LogFormat)

	if *checkConfig {
		for _, s := range cfg.Settings() {
			fmt.Printf("%-16s %s\n", s.Name, s.Value)
		}
		logger.Info("configuration is valid", "env_file", *envFile)
		return
	}
	logger.Info("starting media control bot")

	// Connect to database
	db, err := database.New(context.Background(), cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	applied, err := db.Migrate(context.Background())
	if err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations completed", "applied", applied)

	// Create components
	clk := clock.Real()
	sched := scheduler.New(clk, logger)
	host := power.NewController(runtime.GOOS, power.ExecRunner{}, logger)

	radarrCfg := arr.Config{Timeout: cfg.HTTPTimeout, Retries: cfg.HTTPRetries, Clock: clk}
	if cfg.RadarrEnabled() {
		radarrCfg.BaseURL, radarrCfg.APIKey = cfg.RadarrURL, cfg.RadarrAPIKey
		logger.Info("radarr integration enabled", "url", cfg.RadarrURL)
	}
	sonarrCfg := arr.Config{Timeout: cfg.HTTPTimeout, Retries: cfg.HTTPRetries, Clock: clk}
	if cfg.SonarrEnabled() {
		sonarrCfg.BaseURL, sonarrCfg.APIKey = cfg.SonarrURL, cfg.SonarrAPIKey
		logger.Info("sonarr integration enabled", "url", cfg.SonarrURL)
	}
	plexCfg := plex.Config{Timeout: cfg.HTTPTimeout, Retries: cfg.HTTPRetries}
	if cfg.PlexEnabled() {
		plexCfg.BaseURL, plexCfg.Token = cfg.PlexURL, cfg.PlexToken
		logger.Info("plex integration enabled", "url", cfg.PlexURL)
	}

	// Create bot
	bot, err := telegram.NewBot(telegram.BotDeps{
		Config:    store,
		DB:        db,
		Scheduler: sched,
		Power:     host,
		Radarr:    arr.NewClient(arr.Radarr, radarrCfg, logger),
		Sonarr:    arr.NewClient(arr.Sonarr, sonarrCfg, logger),
		Plex:      plex.NewClient(plexCfg, logger),
		Clock:     clk,
		Formatter: formatter.NewTelegramFormatter(),
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Reload settings when the env file changes
	watcher := config.NewWatcher(store, config.DefaultDebounce, logger)
	go func() {
		if err := watcher.Run(ctx); err != nil {
			logger.Warn("config watcher stopped", "error", err)
		}
	}()

	// Start bot
	logger.Info("bot is running, press Ctrl+C to stop")
	bot.Start(ctx)

	logger.Info("shutting down...")
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		logger.Error("failed to stop scheduler", "error", err)
	}

	logger.Info("bot stopped")
}

func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler
	logLevel := parseLevel(level)

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		})
	} else {
		// Pretty colored output for console
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.DateTime,
			NoColor:    false,
		})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
