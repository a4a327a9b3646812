package fetcher

import (
	"context"
	"net/http"
	"time"
)

// Request describes one unit of extraction work handed to a fetcher.
type Request struct {
	URL      string
	Platform Platform
}

// Fetcher is the per-platform extraction strategy. Implementations perform
// one bounded external call and either return a normalized Result or a
// classified *Error; any other error type is a defect.
type Fetcher interface {
	// Platform returns the identifier this fetcher serves.
	Platform() Platform
	// CanHandle reports whether the URL looks like it belongs to this
	// platform. Dispatch uses the job's platform field; CanHandle exists for
	// diagnostics and enqueue-time sanity checks.
	CanHandle(url string) bool
	// FetchContent performs the extraction under the context's deadline.
	FetchContent(ctx context.Context, req Request) (*Result, error)
}

// NewHTTPClient builds the bounded client fetchers share. The timeout covers
// the whole exchange and must stay below the worker's per-job deadline.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
