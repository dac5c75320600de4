package engine

import (
	"context"
	rand "math/rand/v2"
	"time"
)

// Retry backoff defaults. The wait after failed attempt n is drawn
// uniformly from [0, base<<(n-1)], with the upper bound capped at max.
const (
	DefaultRetryBase = 20 * time.Millisecond
	DefaultRetryMax  = 500 * time.Millisecond
)

// WithRetryBackoff sets the base and cap of the jittered wait between
// conflicting attempts. A base of 0 retries immediately. A cap below base
// is raised to base.
//
// Default: 20ms base, 500ms cap.
func WithRetryBackoff(base, capDur time.Duration) Option {
	return func(e *Engine) {
		if base < 0 {
			base = 0
		}
		if capDur < base {
			capDur = base
		}
		e.retryBase = base
		e.retryMax = capDur
	}
}

// backoffCeiling is the longest wait after the given failed attempt.
func backoffCeiling(base, capDur time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	ceiling := base
	for i := 1; i < attempt && ceiling < capDur; i++ {
		ceiling *= 2
	}
	return min(ceiling, capDur)
}

// backoff draws the wait after the given failed attempt ("full jitter").
func (e *Engine) backoff(attempt int) time.Duration {
	ceiling := backoffCeiling(e.retryBase, e.retryMax, attempt)
	if ceiling <= 0 {
		return 0
	}
	return rand.N(ceiling + 1) //nolint:gosec // non-crypto retry jitter
}

// wait sleeps for d or until ctx is done, whichever comes first.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
