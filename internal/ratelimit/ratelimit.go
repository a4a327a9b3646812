// Package ratelimit implements per-platform token buckets consulted before
// any external call. A denial never blocks the caller; it returns the wait
// until the next token so the worker can reschedule the job instead of
// holding a goroutine.
package ratelimit

import (
	"sync"
	"time"

	"gleaner/internal/fetcher"
)

// Limiter tracks one token bucket per platform. Buckets refill continuously
// at their per-minute budget and are capped at that budget, so a full minute
// of idle time buys at most one minute of burst.
type Limiter struct {
	mu      sync.Mutex
	buckets map[fetcher.Platform]*bucket

	defaultPerMinute int
	now              func() time.Time
}

type bucket struct {
	perMinute  int
	tokens     float64
	lastRefill time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock substitutes the time source. Tests use this to move through
// refill windows without sleeping.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New builds a Limiter from per-platform budgets in requests per minute.
// Platforms absent from the map fall back to defaultPerMinute; a budget at
// or below zero disables limiting for that platform.
func New(budgets map[string]int, defaultPerMinute int, opts ...Option) *Limiter {
	l := &Limiter{
		buckets:          make(map[fetcher.Platform]*bucket),
		defaultPerMinute: defaultPerMinute,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	for name, perMinute := range budgets {
		platform, ok := fetcher.ParsePlatform(name)
		if !ok {
			continue
		}
		l.buckets[platform] = &bucket{
			perMinute:  perMinute,
			tokens:     float64(perMinute),
			lastRefill: l.now(),
		}
	}
	return l
}

// Acquire takes one token for the platform. When the bucket is empty it
// returns false and the wait until a token becomes available.
func (l *Limiter) Acquire(platform fetcher.Platform) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.bucketFor(platform)
	if b.perMinute <= 0 {
		return true, 0
	}

	b.refill(l.now())
	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}

	interval := time.Minute / time.Duration(b.perMinute)
	wait := time.Duration((1 - b.tokens) * float64(interval))
	if wait <= 0 {
		wait = interval
	}
	return false, wait
}

// Status reports the remaining tokens per known platform.
func (l *Limiter) Status() map[fetcher.Platform]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	status := make(map[fetcher.Platform]int, len(l.buckets))
	for platform, b := range l.buckets {
		b.refill(now)
		status[platform] = int(b.tokens)
	}
	return status
}

func (l *Limiter) bucketFor(platform fetcher.Platform) *bucket {
	if b, ok := l.buckets[platform]; ok {
		return b
	}
	b := &bucket{
		perMinute:  l.defaultPerMinute,
		tokens:     float64(l.defaultPerMinute),
		lastRefill: l.now(),
	}
	l.buckets[platform] = b
	return b
}

func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed.Minutes() * float64(b.perMinute)
	if limit := float64(b.perMinute); b.tokens > limit {
		b.tokens = limit
	}
	b.lastRefill = now
}
