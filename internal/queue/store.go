package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"gleaner/internal/config"
	"gleaner/internal/fetcher"
)

// Store manages queue persistence backed by SQLite.
type Store struct {
	db      *sql.DB
	path    string
	backoff BackoffPolicy

	defaultMaxAttempts int
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) execWithoutResultRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

// Open initializes or connects to the queue database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:   db,
		path: dbPath,
		backoff: BackoffPolicy{
			Base: time.Duration(cfg.Fetch.BackoffBaseSeconds) * time.Second,
			Cap:  time.Duration(cfg.Fetch.BackoffCapSeconds) * time.Second,
		},
		defaultMaxAttempts: cfg.Fetch.MaxAttempts,
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Backoff returns the retry delay policy the store applies on failure.
func (s *Store) Backoff() BackoffPolicy {
	return s.backoff
}

const jobColumns = `id, target_url, platform, status, attempts, max_attempts,
    last_error, result_json, not_before, created_at, updated_at,
    started_at, completed_at, last_heartbeat`

func scanJob(scanner interface{ Scan(...any) error }) (*Job, error) {
	var (
		job           Job
		platform      string
		status        string
		lastError     sql.NullString
		resultJSON    sql.NullString
		notBefore     sql.NullString
		createdAt     string
		updatedAt     string
		startedAt     sql.NullString
		completedAt   sql.NullString
		lastHeartbeat sql.NullString
	)

	if err := scanner.Scan(
		&job.ID, &job.TargetURL, &platform, &status, &job.Attempts, &job.MaxAttempts,
		&lastError, &resultJSON, &notBefore, &createdAt, &updatedAt,
		&startedAt, &completedAt, &lastHeartbeat,
	); err != nil {
		return nil, err
	}

	job.Platform = fetcher.Platform(platform)
	job.Status = Status(status)

	var err error
	if job.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if job.NotBefore, err = parseNullableTimestamp(notBefore); err != nil {
		return nil, fmt.Errorf("parse not_before: %w", err)
	}
	if job.StartedAt, err = parseNullableTimestamp(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if job.CompletedAt, err = parseNullableTimestamp(completedAt); err != nil {
		return nil, fmt.Errorf("parse completed_at: %w", err)
	}
	if job.LastHeartbeat, err = parseNullableTimestamp(lastHeartbeat); err != nil {
		return nil, fmt.Errorf("parse last_heartbeat: %w", err)
	}

	if lastError.Valid && lastError.String != "" {
		var jobErr JobError
		if err := json.Unmarshal([]byte(lastError.String), &jobErr); err != nil {
			return nil, fmt.Errorf("decode last_error: %w", err)
		}
		job.LastError = &jobErr
	}
	if resultJSON.Valid && resultJSON.String != "" {
		var result fetcher.Result
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		job.Result = &result
	}

	return &job, nil
}

func parseTimestamp(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}

func parseNullableTimestamp(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	ts, err := parseTimestamp(value.String)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func formatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

func nullableTimestamp(ts *time.Time) any {
	if ts == nil {
		return nil
	}
	return formatTimestamp(*ts)
}

func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
