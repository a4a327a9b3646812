package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks configuration invariants. It is called by Load after
// normalization but is exported so tests and commands can re-check edited
// configs.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must not be empty")
	}

	if c.Workflow.Workers < 1 {
		problems = append(problems, "workflow.workers must be at least 1")
	}
	if c.Workflow.QueuePollInterval < 1 {
		problems = append(problems, "workflow.queue_poll_interval must be at least 1 second")
	}
	if c.Workflow.HeartbeatInterval < 1 {
		problems = append(problems, "workflow.heartbeat_interval must be at least 1 second")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		problems = append(problems, "workflow.heartbeat_timeout must exceed workflow.heartbeat_interval")
	}

	if c.Fetch.RequestTimeout < 1 {
		problems = append(problems, "fetch.request_timeout must be at least 1 second")
	}
	// The per-request budget must leave headroom for classification and
	// persistence inside the worker's overall deadline.
	if c.Fetch.RequestTimeout >= c.Fetch.WorkerTimeout {
		problems = append(problems, "fetch.request_timeout must be less than fetch.worker_timeout")
	}
	if c.Fetch.MaxAttempts < 1 {
		problems = append(problems, "fetch.max_attempts must be at least 1")
	}
	if c.Fetch.BackoffBaseSeconds < 1 {
		problems = append(problems, "fetch.backoff_base_seconds must be at least 1")
	}
	if c.Fetch.BackoffCapSeconds < c.Fetch.BackoffBaseSeconds {
		problems = append(problems, "fetch.backoff_cap_seconds must be at least fetch.backoff_base_seconds")
	}
	if c.Fetch.DownloadMedia && strings.TrimSpace(c.Paths.MediaDir) == "" {
		problems = append(problems, "paths.media_dir is required when fetch.download_media is enabled")
	}

	if len(c.Platforms.Enabled) == 0 {
		problems = append(problems, "platforms.enabled must list at least one platform")
	}
	for name, limit := range c.Platforms.RateLimits {
		if limit < 1 {
			problems = append(problems, fmt.Sprintf("platforms.rate_limits.%s must be at least 1", name))
		}
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
