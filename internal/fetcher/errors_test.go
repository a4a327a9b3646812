package fetcher_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"gleaner/internal/fetcher"
)

func TestCodeRetryability(t *testing.T) {
	cases := []struct {
		code      fetcher.Code
		retryable bool
	}{
		{fetcher.CodeValidation, false},
		{fetcher.CodeNotFound, false},
		{fetcher.CodePrivate, false},
		{fetcher.CodeNotImplemented, false},
		{fetcher.CodeDisabled, false},
		{fetcher.CodeRateLimited, true},
		{fetcher.CodeNetwork, true},
		{fetcher.CodeTimeout, true},
		{fetcher.CodeUnavailable, true},
	}
	for _, tc := range cases {
		if tc.code.Retryable() != tc.retryable {
			t.Errorf("%s: expected retryable=%v", tc.code, tc.retryable)
		}
	}
}

func TestClassifyStatusMapsRateLimitHint(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}}
	resp.Header.Set("Retry-After", "60")

	err := fetcher.ClassifyStatus(fetcher.PlatformTikTok, resp)
	fe, ok := fetcher.AsError(err)
	if !ok {
		t.Fatalf("expected classified error, got %v", err)
	}
	if fe.Code != fetcher.CodeRateLimited {
		t.Fatalf("expected RATE_LIMIT_EXCEEDED, got %s", fe.Code)
	}
	if fe.RetryAfter != 60*time.Second {
		t.Fatalf("expected 60s hint, got %s", fe.RetryAfter)
	}
}

func TestClassifyStatusPermanentCodes(t *testing.T) {
	cases := []struct {
		status int
		code   fetcher.Code
	}{
		{http.StatusNotFound, fetcher.CodeNotFound},
		{http.StatusGone, fetcher.CodeNotFound},
		{http.StatusForbidden, fetcher.CodePrivate},
		{http.StatusUnauthorized, fetcher.CodePrivate},
		{http.StatusInternalServerError, fetcher.CodeUnavailable},
		{http.StatusBadGateway, fetcher.CodeUnavailable},
	}
	for _, tc := range cases {
		err := fetcher.ClassifyStatus(fetcher.PlatformGeneric, &http.Response{StatusCode: tc.status, Header: http.Header{}})
		fe, ok := fetcher.AsError(err)
		if !ok {
			t.Fatalf("status %d: expected classified error", tc.status)
		}
		if fe.Code != tc.code {
			t.Errorf("status %d: expected %s, got %s", tc.status, tc.code, fe.Code)
		}
	}
}

func TestClassifyTransportTimeout(t *testing.T) {
	err := fetcher.ClassifyTransport(fetcher.PlatformYouTube, context.DeadlineExceeded)
	fe, ok := fetcher.AsError(err)
	if !ok {
		t.Fatalf("expected classified error, got %v", err)
	}
	if fe.Code != fetcher.CodeTimeout {
		t.Fatalf("expected TIMEOUT, got %s", fe.Code)
	}
	if !fe.Retryable() {
		t.Fatal("timeout must be retryable")
	}
}

func TestClassifyTransportPreservesCancellation(t *testing.T) {
	err := fetcher.ClassifyTransport(fetcher.PlatformYouTube, context.Canceled)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation passthrough, got %v", err)
	}
	if _, ok := fetcher.AsError(err); ok {
		t.Fatal("cancellation must not be classified as a fetch failure")
	}
}

func TestResultNormalizeCanonicalizesLanguage(t *testing.T) {
	result := &fetcher.Result{
		Content: fetcher.Content{Text: "  hello  "},
		Hints:   fetcher.Hints{Language: "EN-us"},
	}
	result.Normalize()
	if result.Content.Text != "hello" {
		t.Fatalf("text not trimmed: %q", result.Content.Text)
	}
	if result.Hints.Language != "en-US" {
		t.Fatalf("language not canonicalized: %q", result.Hints.Language)
	}

	bad := &fetcher.Result{Hints: fetcher.Hints{Language: "not a tag!!"}}
	bad.Normalize()
	if bad.Hints.Language != "" {
		t.Fatalf("unparsable language should be dropped, got %q", bad.Hints.Language)
	}
}
