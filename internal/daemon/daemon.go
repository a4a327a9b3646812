package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"gleaner/internal/config"
	"gleaner/internal/fetcher"
	"gleaner/internal/logging"
	"gleaner/internal/notifications"
	"gleaner/internal/queue"
	"gleaner/internal/worker"
)

// Daemon coordinates the worker fleet and the HTTP API, and enforces
// single-instance execution through a lock file.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *queue.Store
	workers *worker.Manager
	api     *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workers      int
	QueueDBPath  string
	LockFilePath string
	QueueStats   queue.HealthSummary
	LastError    error
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, workers *worker.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || workers == nil {
		return nil, errors.New("daemon requires config, store, logger, and worker manager")
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger.With(logging.String(logging.FieldComponent, "daemon")),
		store:    store,
		workers:  workers,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	apiSrv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = apiSrv
	return d, nil
}

// Start acquires the daemon lock, resets orphaned jobs, and launches the
// worker fleet and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another gleaner daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	// No worker can be alive before Start, so anything still marked
	// processing was orphaned by a previous crash.
	reset, err := d.store.ResetStuckProcessing(runCtx)
	if err != nil {
		d.releaseStart()
		return fmt.Errorf("reset orphaned jobs: %w", err)
	}
	if reset > 0 {
		d.logger.Info("reset orphaned jobs from previous run", logging.Int64("count", reset))
	}

	if err := d.workers.Start(runCtx); err != nil {
		d.releaseStart()
		return fmt.Errorf("start workers: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.workers.Stop()
		d.releaseStart()
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("gleaner daemon started", logging.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) releaseStart() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	_ = d.lock.Unlock()
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.workers.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("gleaner daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Enqueue validates and inserts a new fetch job.
func (d *Daemon) Enqueue(ctx context.Context, targetURL, platformName string, maxAttempts int) (*queue.Job, error) {
	platform, ok := fetcher.ParsePlatform(platformName)
	if !ok {
		return nil, fmt.Errorf("unknown platform %q", platformName)
	}
	return d.store.Enqueue(ctx, targetURL, platform, maxAttempts)
}

// ListQueue returns jobs filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Job, error) {
	return d.store.List(ctx, statuses...)
}

// ClearQueue removes all jobs.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	return d.store.Clear(ctx)
}

// ClearCompleted removes only completed jobs.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	return d.store.ClearCompleted(ctx)
}

// ClearFailed removes only failed jobs.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	return d.store.ClearFailed(ctx)
}

// RetryFailed resets failed jobs (optionally a subset) back to pending.
func (d *Daemon) RetryFailed(ctx context.Context, ids []int64) (int64, error) {
	return d.store.RetryFailed(ctx, ids...)
}

// QueueStats returns aggregate queue counts.
func (d *Daemon) QueueStats(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Stats(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) queue.DatabaseHealth {
	return d.store.CheckHealth(ctx)
}

// TestNotification triggers a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	stats, _ := d.store.Stats(ctx)
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workers:      d.cfg.Workflow.Workers,
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		QueueStats:   stats,
		LastError:    d.workers.LastError(),
	}
}
