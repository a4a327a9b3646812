// Package worker runs the fetch pipeline: N independent workers claim jobs,
// consult the rate limiter, resolve a fetcher through the registry, execute
// it under a bounded timeout, and persist the classified outcome. A watchdog
// goroutine reclaims jobs abandoned by crashed workers.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"gleaner/internal/config"
	"gleaner/internal/fetcher"
	"gleaner/internal/logging"
	"gleaner/internal/media"
	"gleaner/internal/notifications"
	"gleaner/internal/queue"
	"gleaner/internal/ratelimit"
)

// Manager coordinates the worker fleet and the heartbeat watchdog.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	registry *fetcher.Registry
	limiter  *ratelimit.Limiter
	notifier notifications.Service

	downloader *media.Downloader

	pollInterval       time.Duration
	errorRetryInterval time.Duration
	workerTimeout      time.Duration

	heartbeat *HeartbeatMonitor

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error

	queueActive bool
	queueStart  time.Time
	processed   int
	failed      int
}

// New constructs a worker manager. The downloader may be nil when media
// download is disabled.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, registry *fetcher.Registry, limiter *ratelimit.Limiter, notifier notifications.Service, downloader *media.Downloader) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Manager{
		cfg:                cfg,
		store:              store,
		logger:             logger.With(logging.String(logging.FieldComponent, "worker")),
		registry:           registry,
		limiter:            limiter,
		notifier:           notifier,
		downloader:         downloader,
		pollInterval:       time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		errorRetryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		workerTimeout:      time.Duration(cfg.Fetch.WorkerTimeout) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("worker fleet already running")
	}

	workers := m.cfg.Workflow.Workers
	if workers <= 0 {
		workers = 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(workers + 1)
	m.mu.Unlock()

	for i := 0; i < workers; i++ {
		go m.runWorker(runCtx, i+1)
	}
	go m.runWatchdog(runCtx)

	m.logger.Info("worker fleet started", logging.Int("workers", workers))
	return nil
}

// Stop terminates background processing and waits for in-flight jobs to
// release.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("worker fleet stopped")
}

// Running reports whether the fleet is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// LastError returns the most recent infrastructure error the fleet hit.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

// noteClaimed marks the start of a drain window on the first claim after an
// idle period.
func (m *Manager) noteClaimed() {
	m.mu.Lock()
	if !m.queueActive {
		m.queueActive = true
		m.queueStart = time.Now()
		m.processed = 0
		m.failed = 0
	}
	m.mu.Unlock()
}

func (m *Manager) noteOutcome(failed bool) {
	m.mu.Lock()
	if failed {
		m.failed++
	} else {
		m.processed++
	}
	m.mu.Unlock()
}

// maybeNotifyDrained fires the queue-drained notification once all work that
// started in this window has reached a terminal state.
func (m *Manager) maybeNotifyDrained(ctx context.Context) {
	m.mu.Lock()
	if !m.queueActive {
		m.mu.Unlock()
		return
	}
	processed, failed, start := m.processed, m.failed, m.queueStart
	m.mu.Unlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		return
	}
	if stats.Pending > 0 || stats.Retry > 0 || stats.Processing > 0 {
		return
	}

	m.mu.Lock()
	if !m.queueActive {
		m.mu.Unlock()
		return
	}
	m.queueActive = false
	m.mu.Unlock()

	if err := m.notifier.NotifyQueueDrained(ctx, processed, failed, time.Since(start)); err != nil {
		m.logger.Warn("queue drained notification failed", logging.Error(err))
	}
}
