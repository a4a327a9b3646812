package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Code classifies a fetch failure. Every failure path out of a fetcher must
// carry one of these; an unclassified error reaching the worker is a
// programming defect, not a valid outcome.
type Code string

const (
	CodeValidation     Code = "VALIDATION_ERROR"
	CodeNotFound       Code = "CONTENT_NOT_FOUND"
	CodePrivate        Code = "CONTENT_PRIVATE"
	CodeNotImplemented Code = "PLATFORM_NOT_IMPLEMENTED"
	CodeDisabled       Code = "PLATFORM_DISABLED"
	CodeRateLimited    Code = "RATE_LIMIT_EXCEEDED"
	CodeNetwork        Code = "NETWORK_ERROR"
	CodeTimeout        Code = "TIMEOUT"
	CodeUnavailable    Code = "EXTERNAL_SERVICE_UNAVAILABLE"
)

var retryableCodes = map[Code]struct{}{
	CodeRateLimited: {},
	CodeNetwork:     {},
	CodeTimeout:     {},
	CodeUnavailable: {},
}

// Retryable reports whether the code describes a transient condition.
func (c Code) Retryable() bool {
	_, ok := retryableCodes[c]
	return ok
}

// Error is a classified fetch failure. RetryAfter carries a server-provided
// delay hint when one exists (429 Retry-After, limiter denial); zero means
// the default backoff applies.
type Error struct {
	Code       Code
	Platform   Platform
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure is eligible for re-queue.
func (e *Error) Retryable() bool { return e.Code.Retryable() }

// NewError builds a classified error without an underlying cause.
func NewError(code Code, platform Platform, message string) *Error {
	return &Error{Code: code, Platform: platform, Message: message}
}

// WrapError builds a classified error around an underlying cause.
func WrapError(code Code, platform Platform, message string, err error) *Error {
	return &Error{Code: code, Platform: platform, Message: message, Err: err}
}

// AsError extracts a classified *Error from err when one exists.
func AsError(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// ClassifyTransport maps transport-level failures from an HTTP round trip to
// the taxonomy. Timeouts and connection errors are always retryable; a
// context cancellation is passed through untouched so shutdown is not
// recorded as a job failure.
func ClassifyTransport(platform Platform, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return WrapError(CodeTimeout, platform, "request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return WrapError(CodeTimeout, platform, "request timed out", err)
	}
	return WrapError(CodeNetwork, platform, "request failed", err)
}

// ClassifyStatus maps a non-2xx HTTP response status to the taxonomy.
// 404/410 and 401/403 are permanent; 429 is retryable and carries any
// Retry-After hint; 5xx is retryable with the default backoff.
func ClassifyStatus(platform Platform, resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return NewError(CodeNotFound, platform, "content not found")
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return NewError(CodePrivate, platform, "content is private or requires authentication")
	case resp.StatusCode == http.StatusTooManyRequests:
		e := NewError(CodeRateLimited, platform, "platform rate limit exceeded")
		e.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		return e
	case resp.StatusCode >= 500:
		return NewError(CodeUnavailable, platform, fmt.Sprintf("upstream returned status %d", resp.StatusCode))
	default:
		return NewError(CodeNetwork, platform, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}
}

func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}
	return 0
}
