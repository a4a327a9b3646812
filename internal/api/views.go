package api

import (
	"encoding/json"
	"time"

	"gleaner/internal/queue"
)

// FromJob converts a persisted job into its wire shape.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}
	out := Job{
		ID:            job.ID,
		TargetURL:     job.TargetURL,
		Platform:      string(job.Platform),
		Status:        string(job.Status),
		Attempts:      job.Attempts,
		MaxAttempts:   job.MaxAttempts,
		NotBefore:     formatTime(job.NotBefore),
		CreatedAt:     job.CreatedAt.Format(dateTimeFormat),
		UpdatedAt:     job.UpdatedAt.Format(dateTimeFormat),
		StartedAt:     formatTime(job.StartedAt),
		CompletedAt:   formatTime(job.CompletedAt),
		LastHeartbeat: formatTime(job.LastHeartbeat),
	}
	if job.LastError != nil {
		out.Error = &JobError{
			Code:              job.LastError.Code,
			Message:           job.LastError.Message,
			Platform:          job.LastError.Platform,
			RetryAfterSeconds: job.LastError.RetryAfterSeconds,
		}
	}
	if job.Result != nil {
		if encoded, err := json.Marshal(job.Result); err == nil {
			out.Result = encoded
		}
	}
	return out
}

// FromJobs converts a job slice into wire shapes.
func FromJobs(jobs []*queue.Job) []Job {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// StatsCounts flattens a health summary into status-keyed counts.
func StatsCounts(summary queue.HealthSummary) map[string]int {
	return map[string]int{
		string(queue.StatusPending):    summary.Pending,
		string(queue.StatusProcessing): summary.Processing,
		string(queue.StatusRetry):      summary.Retry,
		string(queue.StatusCompleted):  summary.Completed,
		string(queue.StatusFailed):     summary.Failed,
	}
}

// FromDatabaseHealth converts store diagnostics into the wire shape.
func FromDatabaseHealth(health queue.DatabaseHealth) HealthResponse {
	return HealthResponse{
		Healthy:          health.DatabaseReadable && health.TableExists && health.IntegrityCheck,
		DatabaseReadable: health.DatabaseReadable,
		TableExists:      health.TableExists,
		IntegrityCheck:   health.IntegrityCheck,
		TotalJobs:        health.TotalJobs,
		Error:            health.Error,
	}
}

func formatTime(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return ts.Format(dateTimeFormat)
}
