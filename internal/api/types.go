package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a queue entry in a transport-friendly format.
type Job struct {
	ID            int64           `json:"id"`
	TargetURL     string          `json:"targetUrl"`
	Platform      string          `json:"platform"`
	Status        string          `json:"status"`
	Attempts      int             `json:"attempts"`
	MaxAttempts   int             `json:"maxAttempts"`
	Error         *JobError       `json:"error,omitempty"`
	Result        json.RawMessage `json:"result,omitempty"`
	NotBefore     string          `json:"notBefore,omitempty"`
	CreatedAt     string          `json:"createdAt,omitempty"`
	UpdatedAt     string          `json:"updatedAt,omitempty"`
	StartedAt     string          `json:"startedAt,omitempty"`
	CompletedAt   string          `json:"completedAt,omitempty"`
	LastHeartbeat string          `json:"lastHeartbeat,omitempty"`
}

// JobError carries the persisted failure classification.
type JobError struct {
	Code              string `json:"code"`
	Message           string `json:"message"`
	Platform          string `json:"platform,omitempty"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

// EnqueueRequest is the POST /api/jobs payload.
type EnqueueRequest struct {
	URL         string `json:"url"`
	Platform    string `json:"platform"`
	MaxAttempts int    `json:"maxAttempts,omitempty"`
}

// RetryRequest is the POST /api/queue/retry payload. An empty ID list
// retries every failed job.
type RetryRequest struct {
	IDs []int64 `json:"ids,omitempty"`
}

// RetryResponse reports how many jobs were re-queued.
type RetryResponse struct {
	Retried int64 `json:"retried"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	Workers      int            `json:"workers"`
	QueueDBPath  string         `json:"queueDbPath"`
	LockFilePath string         `json:"lockFilePath"`
	QueueStats   map[string]int `json:"queueStats"`
	LastError    string         `json:"lastError,omitempty"`
}

// HealthResponse reports queue database diagnostics.
type HealthResponse struct {
	Healthy          bool   `json:"healthy"`
	DatabaseReadable bool   `json:"databaseReadable"`
	TableExists      bool   `json:"tableExists"`
	IntegrityCheck   bool   `json:"integrityCheck"`
	TotalJobs        int    `json:"totalJobs"`
	Error            string `json:"error,omitempty"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// JobListResponse wraps a collection of jobs for API responses.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}
