// Package daemonrun wires the daemon's dependencies and runs it until the
// context is cancelled. Both gleanerd and the CLI's run command go through
// Run so the two entry points cannot drift apart.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"gleaner/internal/config"
	"gleaner/internal/daemon"
	"gleaner/internal/fetcher"
	"gleaner/internal/fetcher/opengraph"
	"gleaner/internal/fetcher/tiktok"
	"gleaner/internal/fetcher/youtube"
	"gleaner/internal/logging"
	"gleaner/internal/media"
	"gleaner/internal/notifications"
	"gleaner/internal/queue"
	"gleaner/internal/ratelimit"
	"gleaner/internal/worker"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides the configured log level when non-empty.
	LogLevel string
}

// NewLogger builds the daemon logger writing to stdout and the log file.
func NewLogger(cfg *config.Config, opts Options) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	return logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", cfg.LogPath()},
	})
}

// BuildRegistry assembles the platform fetchers permitted by the allow-list.
// Enabled platforms without a dedicated fetcher are served by the OpenGraph
// fallback.
func BuildRegistry(cfg *config.Config) *fetcher.Registry {
	enabled := make([]fetcher.Platform, 0, len(cfg.Platforms.Enabled))
	for _, name := range cfg.Platforms.Enabled {
		if platform, ok := fetcher.ParsePlatform(name); ok {
			enabled = append(enabled, platform)
		}
	}

	client := fetcher.NewHTTPClient(time.Duration(cfg.Fetch.RequestTimeout) * time.Second)
	registry := fetcher.NewRegistry(enabled)
	registry.Register(tiktok.New(client, cfg.Fetch.UserAgent))
	registry.Register(youtube.New(client, cfg.Fetch.UserAgent))
	registry.RegisterFallback(opengraph.New(client, cfg.Fetch.UserAgent))
	return registry
}

// Run starts the gleaner daemon runtime loop and blocks until the context or
// a termination signal cancels it.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logger, err := NewLogger(cfg, opts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.DataDir, "gleanerd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}

	registry := BuildRegistry(cfg)
	limiter := ratelimit.New(cfg.Platforms.RateLimits, config.DefaultRateLimit)
	notifier := notifications.NewService(cfg)

	var downloader *media.Downloader
	if cfg.Fetch.DownloadMedia {
		downloadClient := fetcher.NewHTTPClient(time.Duration(cfg.Fetch.WorkerTimeout) * time.Second)
		downloader = media.New(
			downloadClient,
			cfg.Paths.MediaDir,
			int64(cfg.Fetch.MaxDownloadMiB)<<20,
			cfg.Fetch.UserAgent,
		)
	}

	workers := worker.New(cfg, store, logger, registry, limiter, notifier, downloader)

	d, err := daemon.New(cfg, store, logger, workers)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("gleaner daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
