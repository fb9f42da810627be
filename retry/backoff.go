// Package retry provides the exponential backoff policy shared by both
// retry levels. Each level owns its own Policy built from its own
// config; the formula is identical:
//
//	delay(attempt) = min(max_delay, base_delay * multiplier^(attempt-1))
//
// with attempt numbering starting at 1, so the first retry waits the
// base delay, not zero.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Policy is an exponential backoff curve.
type Policy struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// NewPolicy builds a Policy, clamping nonsensical values.
func NewPolicy(base, max time.Duration, multiplier float64) Policy {
	if base <= 0 {
		base = 1 * time.Second
	}
	if max < base {
		max = base
	}
	if multiplier < 1.0 {
		multiplier = 2.0
	}
	return Policy{BaseDelay: base, MaxDelay: max, Multiplier: multiplier}
}

// Delay returns the wait before the retry following the given attempt.
// Attempts below 1 are treated as 1.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if delay > float64(p.MaxDelay) || math.IsInf(delay, 1) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// Sleep waits for d, returning early with an error when ctx is
// cancelled. A cancelled backoff sleep must unwind the retry loop
// rather than silently continuing to the next attempt.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
