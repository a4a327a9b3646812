package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ClaimNext atomically transitions the next eligible job to processing and
// returns it. Eligibility means status pending or retry, attempts below
// max_attempts, and any not_before floor already passed. Retry jobs are
// preferred over pending jobs; within a class the oldest wins. The claim is
// a single UPDATE so concurrent callers can never receive the same row; when
// nothing is eligible it returns (nil, nil).
func (s *Store) ClaimNext(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)
	now := formatTimestamp(time.Now())

	var job *Job
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(
			ctx,
			`UPDATE jobs
             SET status = ?, started_at = ?, last_heartbeat = ?, updated_at = ?
             WHERE id = (
                 SELECT id FROM jobs
                 WHERE status IN (?, ?)
                   AND attempts < max_attempts
                   AND (not_before IS NULL OR not_before <= ?)
                 ORDER BY CASE status WHEN ? THEN 0 ELSE 1 END, created_at, id
                 LIMIT 1
             )
             RETURNING `+jobColumns,
			StatusProcessing, now, now, now,
			StatusPending, StatusRetry,
			now,
			StatusRetry,
		)
		claimed, scanErr := scanJob(row)
		if errors.Is(scanErr, sql.ErrNoRows) {
			job = nil
			return nil
		}
		if scanErr != nil {
			return scanErr
		}
		job = claimed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim next job: %w", err)
	}
	return job, nil
}
