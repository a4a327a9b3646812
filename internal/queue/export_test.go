package queue

import (
	"context"
	"time"
)

// Test-only row manipulation so tests can rewind clock-driven columns
// instead of sleeping through real backoff windows.

func (s *Store) SetNotBefore(ctx context.Context, id int64, ts time.Time) error {
	return s.execWithoutResultRetry(ctx,
		`UPDATE jobs SET not_before = ? WHERE id = ?`, formatTimestamp(ts), id)
}

func (s *Store) SetCreatedAt(ctx context.Context, id int64, ts time.Time) error {
	return s.execWithoutResultRetry(ctx,
		`UPDATE jobs SET created_at = ? WHERE id = ?`, formatTimestamp(ts), id)
}

func (s *Store) SetHeartbeat(ctx context.Context, id int64, ts time.Time) error {
	return s.execWithoutResultRetry(ctx,
		`UPDATE jobs SET last_heartbeat = ? WHERE id = ?`, formatTimestamp(ts), id)
}
