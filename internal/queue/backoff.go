package queue

import "time"

// BackoffPolicy computes the delay before a failed job becomes eligible
// again. The delay is Base doubled once per completed attempt, never
// exceeding Cap, so delays are monotonically non-decreasing across attempts.
type BackoffPolicy struct {
	Base time.Duration
	Cap  time.Duration
}

// Delay returns Base * 2^attempts capped at Cap. Attempt counts below zero
// are treated as zero.
func (p BackoffPolicy) Delay(attempts int) time.Duration {
	if p.Base <= 0 {
		return 0
	}
	delay := p.Base
	for i := 0; i < attempts; i++ {
		delay *= 2
		if p.Cap > 0 && delay >= p.Cap {
			return p.Cap
		}
	}
	if p.Cap > 0 && delay > p.Cap {
		return p.Cap
	}
	return delay
}
