package ratelimit

import (
	"testing"
	"time"

	"gleaner/internal/fetcher"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(budgets map[string]int, fallback int) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)}
	return New(budgets, fallback, WithClock(clock.Now)), clock
}

func TestAcquireDrainsBucket(t *testing.T) {
	limiter, _ := newTestLimiter(map[string]int{"tiktok": 3}, 60)

	for i := 0; i < 3; i++ {
		granted, _ := limiter.Acquire(fetcher.PlatformTikTok)
		if !granted {
			t.Fatalf("request %d: expected grant", i)
		}
	}

	granted, wait := limiter.Acquire(fetcher.PlatformTikTok)
	if granted {
		t.Fatal("expected denial once bucket is empty")
	}
	if wait <= 0 {
		t.Fatalf("expected positive retry hint, got %s", wait)
	}
}

func TestBucketRefillsOverTime(t *testing.T) {
	limiter, clock := newTestLimiter(map[string]int{"tiktok": 60}, 60)

	for i := 0; i < 60; i++ {
		if granted, _ := limiter.Acquire(fetcher.PlatformTikTok); !granted {
			t.Fatalf("request %d: expected grant", i)
		}
	}
	if granted, _ := limiter.Acquire(fetcher.PlatformTikTok); granted {
		t.Fatal("expected denial with empty bucket")
	}

	// 60/min refills one token per second.
	clock.Advance(time.Second)
	if granted, _ := limiter.Acquire(fetcher.PlatformTikTok); !granted {
		t.Fatal("expected grant after refill window")
	}
	if granted, _ := limiter.Acquire(fetcher.PlatformTikTok); granted {
		t.Fatal("expected only one token after one second")
	}
}

func TestRefillNeverExceedsBudget(t *testing.T) {
	limiter, clock := newTestLimiter(map[string]int{"tiktok": 5}, 60)

	clock.Advance(time.Hour)
	granted := 0
	for i := 0; i < 10; i++ {
		if ok, _ := limiter.Acquire(fetcher.PlatformTikTok); ok {
			granted++
		}
	}
	if granted != 5 {
		t.Fatalf("expected 5 grants after long idle, got %d", granted)
	}
}

func TestDenialWaitCoversNextToken(t *testing.T) {
	limiter, clock := newTestLimiter(map[string]int{"tiktok": 60}, 60)

	for i := 0; i < 60; i++ {
		limiter.Acquire(fetcher.PlatformTikTok)
	}
	_, wait := limiter.Acquire(fetcher.PlatformTikTok)

	clock.Advance(wait)
	if granted, _ := limiter.Acquire(fetcher.PlatformTikTok); !granted {
		t.Fatalf("expected grant after waiting the advertised %s", wait)
	}
}

func TestUnknownPlatformUsesDefaultBudget(t *testing.T) {
	limiter, _ := newTestLimiter(map[string]int{"tiktok": 60}, 2)

	for i := 0; i < 2; i++ {
		if granted, _ := limiter.Acquire(fetcher.PlatformReddit); !granted {
			t.Fatalf("request %d: expected grant from default budget", i)
		}
	}
	if granted, _ := limiter.Acquire(fetcher.PlatformReddit); granted {
		t.Fatal("expected denial once default budget drained")
	}
}

func TestZeroBudgetDisablesLimiting(t *testing.T) {
	limiter, _ := newTestLimiter(map[string]int{"generic": 0}, 60)

	for i := 0; i < 500; i++ {
		if granted, _ := limiter.Acquire(fetcher.PlatformGeneric); !granted {
			t.Fatalf("request %d: expected unlimited platform to always grant", i)
		}
	}
}

func TestStatusReportsRemainingTokens(t *testing.T) {
	limiter, _ := newTestLimiter(map[string]int{"tiktok": 10}, 60)

	for i := 0; i < 4; i++ {
		limiter.Acquire(fetcher.PlatformTikTok)
	}
	status := limiter.Status()
	if status[fetcher.PlatformTikTok] != 6 {
		t.Fatalf("expected 6 tokens remaining, got %d", status[fetcher.PlatformTikTok])
	}
}
