package queue

import (
	"strings"
	"time"

	"gleaner/internal/fetcher"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusRetry      Status = "retry"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusRetry,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Terminal reports whether the status permits no further mutation.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobError is the persisted form of a classified fetch failure.
type JobError struct {
	Code              string `json:"code"`
	Message           string `json:"message"`
	Platform          string `json:"platform,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

// FromFetchError folds a classified fetcher error into the persisted shape.
func FromFetchError(fe *fetcher.Error) *JobError {
	if fe == nil {
		return nil
	}
	return &JobError{
		Code:              string(fe.Code),
		Message:           fe.Message,
		Platform:          string(fe.Platform),
		RetryAfterSeconds: int(fe.RetryAfter / time.Second),
	}
}

// Job represents one persisted content-fetch work item.
type Job struct {
	ID            int64
	TargetURL     string
	Platform      fetcher.Platform
	Status        Status
	Attempts      int
	MaxAttempts   int
	LastError     *JobError
	Result        *fetcher.Result
	NotBefore     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	LastHeartbeat *time.Time
}

// Eligible reports whether the job could be claimed at the given instant.
func (j *Job) Eligible(now time.Time) bool {
	if j.Status != StatusPending && j.Status != StatusRetry {
		return false
	}
	if j.Attempts >= j.MaxAttempts {
		return false
	}
	if j.NotBefore != nil && j.NotBefore.After(now) {
		return false
	}
	return true
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Retry      int
	Completed  int
	Failed     int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}
