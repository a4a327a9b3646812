package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gleaner/internal/fetcher"
)

// Complete finalizes a processing job with its fetch result. Jobs not in the
// processing state are left untouched and ErrNotProcessing is returned, so a
// stale worker can never overwrite a terminal row.
func (s *Store) Complete(ctx context.Context, id int64, result *fetcher.Result) error {
	if result == nil {
		return errors.New("result is nil")
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	now := formatTimestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, result_json = ?, completed_at = ?, updated_at = ?, last_heartbeat = NULL
         WHERE id = ? AND status = ?`,
		StatusCompleted,
		string(resultJSON),
		now,
		now,
		id,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete job rows: %w", err)
	}
	if affected == 0 {
		return s.transitionMiss(ctx, id)
	}
	return nil
}

// Fail records a failed attempt on a processing job. Retryable failures below
// the attempt budget move the job to retry with a not_before floor of
// max(backoff, suggestedDelay) from now; everything else is terminal. Like
// Complete, it refuses to touch jobs that are not processing.
func (s *Store) Fail(ctx context.Context, id int64, jobErr *JobError, retryable bool, suggestedDelay time.Duration) error {
	if jobErr == nil {
		return errors.New("job error is nil")
	}
	errJSON, err := json.Marshal(jobErr)
	if err != nil {
		return fmt.Errorf("encode job error: %w", err)
	}

	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin fail tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var attempts, maxAttempts int
		err = tx.QueryRowContext(ctx,
			`SELECT attempts, max_attempts FROM jobs WHERE id = ? AND status = ?`,
			id, StatusProcessing,
		).Scan(&attempts, &maxAttempts)
		if errors.Is(err, sql.ErrNoRows) {
			return s.transitionMiss(ctx, id)
		}
		if err != nil {
			return fmt.Errorf("read job for fail: %w", err)
		}

		attempts++
		now := time.Now()
		timestamp := formatTimestamp(now)

		if retryable && attempts < maxAttempts {
			delay := s.backoff.Delay(attempts)
			if suggestedDelay > delay {
				delay = suggestedDelay
			}
			notBefore := formatTimestamp(now.Add(delay))
			_, err = tx.ExecContext(ctx,
				`UPDATE jobs
                 SET status = ?, attempts = ?, last_error = ?, not_before = ?,
                     updated_at = ?, last_heartbeat = NULL
                 WHERE id = ?`,
				StatusRetry, attempts, string(errJSON), notBefore, timestamp, id,
			)
		} else {
			_, err = tx.ExecContext(ctx,
				`UPDATE jobs
                 SET status = ?, attempts = ?, last_error = ?, not_before = NULL,
                     completed_at = ?, updated_at = ?, last_heartbeat = NULL
                 WHERE id = ?`,
				StatusFailed, attempts, string(errJSON), timestamp, timestamp, id,
			)
		}
		if err != nil {
			return fmt.Errorf("record failure: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit failure: %w", err)
		}
		return nil
	})
}

// FailPermanently records a terminal failure without charging an attempt.
// Used for registry rejections where the fetcher was never invoked.
func (s *Store) FailPermanently(ctx context.Context, id int64, jobErr *JobError) error {
	if jobErr == nil {
		return errors.New("job error is nil")
	}
	errJSON, err := json.Marshal(jobErr)
	if err != nil {
		return fmt.Errorf("encode job error: %w", err)
	}

	now := formatTimestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, last_error = ?, not_before = NULL, completed_at = ?,
             updated_at = ?, last_heartbeat = NULL
         WHERE id = ? AND status = ?`,
		StatusFailed, string(errJSON), now, now, id, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("fail job rows: %w", err)
	}
	if affected == 0 {
		return s.transitionMiss(ctx, id)
	}
	return nil
}

// UpdateHeartbeat refreshes the liveness timestamp for an in-flight job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := formatTimestamp(time.Now())
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		now, now, id, StatusProcessing,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// transitionMiss distinguishes a missing row from a row in the wrong state.
func (s *Store) transitionMiss(ctx context.Context, id int64) error {
	var exists int
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM jobs WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check job existence: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return ErrNotProcessing
}
