package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"gleaner/internal/fetcher"
	"gleaner/internal/logging"
	"gleaner/internal/metrics"
	"gleaner/internal/queue"
)

// processJob drives one claimed job to completed, retry, or failed. The
// returned error is reserved for infrastructure problems (store access,
// shutdown); fetch failures are persisted on the job, not returned.
func (m *Manager) processJob(ctx context.Context, logger *slog.Logger, job *queue.Job) error {
	logger.Info("processing job",
		logging.String("url", job.TargetURL),
		logging.Int(logging.FieldAttempt, job.Attempts+1),
	)

	if granted, retryAfter := m.limiter.Acquire(job.Platform); !granted {
		metrics.RateLimitDenials.WithLabelValues(string(job.Platform)).Inc()
		logger.Info("rate limit budget exhausted, deferring job",
			logging.Duration("retry_after", retryAfter),
		)
		jobErr := &queue.JobError{
			Code:              string(fetcher.CodeRateLimited),
			Message:           "platform request budget exhausted",
			Platform:          string(job.Platform),
			RetryAfterSeconds: int(retryAfter / time.Second),
		}
		if err := m.store.Fail(ctx, job.ID, jobErr, true, retryAfter); err != nil {
			return err
		}
		return m.recordFailureOutcome(ctx, logger, job.ID)
	}

	f, err := m.registry.GetFetcher(job.Platform)
	if err != nil {
		fe, ok := fetcher.AsError(err)
		if !ok {
			return err
		}
		logger.Info("registry rejected job",
			logging.String(logging.FieldErrorCode, string(fe.Code)),
		)
		if err := m.store.FailPermanently(ctx, job.ID, queue.FromFetchError(fe)); err != nil {
			return err
		}
		return m.recordFailureOutcome(ctx, logger, job.ID)
	}

	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.ID)
	defer func() {
		hbCancel()
		hbWG.Wait()
	}()

	fetchCtx, fetchCancel := context.WithTimeout(ctx, m.workerTimeout)
	defer fetchCancel()

	started := time.Now()
	result, fetchErr := f.FetchContent(fetchCtx, fetcher.Request{URL: job.TargetURL, Platform: job.Platform})
	metrics.FetchDuration.WithLabelValues(string(job.Platform)).Observe(time.Since(started).Seconds())

	if fetchErr != nil {
		if errors.Is(fetchErr, context.Canceled) && ctx.Err() != nil {
			return context.Canceled
		}
		fe, ok := fetcher.AsError(fetchErr)
		if !ok {
			// An unclassified error is a fetcher defect; treat it as a
			// transient upstream problem rather than losing the job.
			fe = fetcher.WrapError(fetcher.CodeUnavailable, job.Platform, "unclassified fetch failure", fetchErr)
		}
		logger.Warn("fetch failed",
			logging.String(logging.FieldErrorCode, string(fe.Code)),
			logging.Error(fe),
		)
		if err := m.store.Fail(ctx, job.ID, queue.FromFetchError(fe), fe.Retryable(), fe.RetryAfter); err != nil {
			return err
		}
		return m.recordFailureOutcome(ctx, logger, job.ID)
	}

	m.downloadMedia(ctx, logger, job, result)

	if err := m.store.Complete(ctx, job.ID, result); err != nil {
		return err
	}
	metrics.JobsCompleted.WithLabelValues(string(job.Platform)).Inc()
	m.noteOutcome(false)
	logger.Info("job completed", logging.Duration("fetch_duration", time.Since(started)))

	completed, err := m.store.GetByID(ctx, job.ID)
	if err == nil {
		if err := m.notifier.NotifyJobCompleted(ctx, completed); err != nil {
			logger.Warn("completion notification failed", logging.Error(err))
		}
	}
	return nil
}

// downloadMedia mirrors the primary media locally when configured. Download
// problems are logged, not fatal: the fetch itself succeeded and the result
// keeps the remote URL.
func (m *Manager) downloadMedia(ctx context.Context, logger *slog.Logger, job *queue.Job, result *fetcher.Result) {
	if m.downloader == nil || result == nil || result.Media == nil || result.Media.URL == "" {
		return
	}
	localPath, err := m.downloader.Download(ctx, job.ID, result.Media)
	if err != nil {
		logger.Warn("media download failed, keeping remote url",
			logging.Error(err),
			logging.String("media_url", result.Media.URL),
		)
		return
	}
	result.Media.LocalPath = localPath
}

// recordFailureOutcome reads the job back after a Fail and emits the metrics
// and notifications matching where it landed.
func (m *Manager) recordFailureOutcome(ctx context.Context, logger *slog.Logger, id int64) error {
	job, err := m.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	code := ""
	if job.LastError != nil {
		code = job.LastError.Code
	}
	switch job.Status {
	case queue.StatusRetry:
		metrics.JobsRetried.WithLabelValues(string(job.Platform), code).Inc()
		logger.Info("job scheduled for retry",
			logging.Int(logging.FieldAttempt, job.Attempts),
			logging.String(logging.FieldErrorCode, code),
		)
	case queue.StatusFailed:
		metrics.JobsFailed.WithLabelValues(string(job.Platform), code).Inc()
		m.noteOutcome(true)
		logger.Warn("job failed permanently",
			logging.Int(logging.FieldAttempt, job.Attempts),
			logging.String(logging.FieldErrorCode, code),
		)
		if err := m.notifier.NotifyJobFailed(ctx, job); err != nil {
			logger.Warn("failure notification failed", logging.Error(err))
		}
	}
	return nil
}
