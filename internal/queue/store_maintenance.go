package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

var reapedError = func() string {
	payload, _ := json.Marshal(JobError{
		Code:    "TIMEOUT",
		Message: "worker heartbeat expired; job reclaimed",
	})
	return string(payload)
}()

// ReclaimStaleProcessing returns processing jobs whose heartbeat predates the
// cutoff back into the retry pool. A reclaimed job is charged one attempt so
// a job that repeatedly kills its worker cannot loop forever; jobs that have
// exhausted their budget go to failed instead.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	now := formatTimestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET attempts = attempts + 1,
             status = CASE WHEN attempts + 1 < max_attempts THEN ? ELSE ? END,
             completed_at = CASE WHEN attempts + 1 < max_attempts THEN completed_at ELSE ? END,
             last_error = ?, not_before = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusRetry, StatusFailed,
		now,
		reapedError,
		now,
		StatusProcessing,
		formatTimestamp(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// ResetStuckProcessing returns every processing job to pending regardless of
// heartbeat age. Runs once at daemon startup, when no worker can be alive.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, started_at = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status = ?`,
		StatusPending,
		formatTimestamp(time.Now()),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed jobs back to pending with a fresh attempt budget.
// With no ids it retries every failed job.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	now := formatTimestamp(time.Now())
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE jobs
             SET status = ?, attempts = 0, last_error = NULL, not_before = NULL,
                 completed_at = NULL, updated_at = ?
             WHERE status = ?`,
			StatusPending, now, StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed jobs: %w", err)
		}
		return res.RowsAffected()
	}

	args := make([]any, 0, len(ids)+3)
	args = append(args, StatusPending, now)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, StatusFailed)
	query := `UPDATE jobs
        SET status = ?, attempts = 0, last_error = NULL, not_before = NULL,
            completed_at = NULL, updated_at = ?
        WHERE id IN (` + makePlaceholders(len(ids)) + `) AND status = ?`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected jobs: %w", err)
	}
	return res.RowsAffected()
}

// ClearCompleted removes completed jobs.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	return s.deleteByStatus(ctx, StatusCompleted)
}

// ClearFailed removes failed jobs.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	return s.deleteByStatus(ctx, StatusFailed)
}

func (s *Store) deleteByStatus(ctx context.Context, status Status) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status = ?`, status)
	if err != nil {
		return 0, fmt.Errorf("clear %s jobs: %w", status, err)
	}
	return res.RowsAffected()
}

// Clear removes every job from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// Remove deletes a single job unless it is currently processing.
func (s *Store) Remove(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM jobs WHERE id = ? AND status != ?`, id, StatusProcessing)
	if err != nil {
		return fmt.Errorf("remove job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove job rows: %w", err)
	}
	if affected == 0 {
		return s.removeMiss(ctx, id)
	}
	return nil
}

func (s *Store) removeMiss(ctx context.Context, id int64) error {
	var exists int
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM jobs WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check job existence: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return fmt.Errorf("job %d is processing and cannot be removed", id)
}
