package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gleaner/internal/logging"
	"gleaner/internal/metrics"
)

func (m *Manager) runWorker(ctx context.Context, workerID int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int(logging.FieldWorkerID, workerID))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.store.ClaimNext(ctx)
		if err != nil {
			m.handleClaimError(ctx, logger, err)
			continue
		}
		if job == nil {
			m.maybeNotifyDrained(ctx)
			m.waitForJobOrShutdown(ctx)
			continue
		}
		m.noteClaimed()

		jobLogger := logger.With(
			logging.Int64(logging.FieldJobID, job.ID),
			logging.String(logging.FieldPlatform, string(job.Platform)),
			logging.String(logging.FieldRequestID, uuid.NewString()),
		)
		if err := m.processJob(ctx, jobLogger, job); err != nil {
			if errors.Is(err, context.Canceled) {
				// Shutdown mid-job; the startup reset or the watchdog returns
				// the row to the pool.
				return
			}
			m.setLastError(err)
			jobLogger.Error("job processing hit infrastructure error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "job_process_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}
	}
}

func (m *Manager) runWatchdog(ctx context.Context) {
	defer m.wg.Done()
	logger := m.logger.With(logging.String(logging.FieldComponent, "watchdog"))

	interval := m.heartbeat.heartbeatInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.heartbeat.ReclaimStaleJobs(ctx, logger); err != nil {
				logger.Warn("reclaim stale processing failed; stuck jobs may remain",
					logging.Error(err),
					logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
					logging.String(logging.FieldErrorHint, "check queue database access"),
				)
			}
			m.updateQueueDepth(ctx)
		}
	}
}

func (m *Manager) updateQueueDepth(ctx context.Context) {
	stats, err := m.store.Stats(ctx)
	if err != nil {
		return
	}
	metrics.QueueDepth.WithLabelValues("pending").Set(float64(stats.Pending))
	metrics.QueueDepth.WithLabelValues("processing").Set(float64(stats.Processing))
	metrics.QueueDepth.WithLabelValues("retry").Set(float64(stats.Retry))
	metrics.QueueDepth.WithLabelValues("completed").Set(float64(stats.Completed))
	metrics.QueueDepth.WithLabelValues("failed").Set(float64(stats.Failed))
}

func (m *Manager) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	m.setLastError(err)
	logger.Error("failed to claim next job",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_claim_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(m.errorRetryInterval):
	}
}

func (m *Manager) waitForJobOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}
