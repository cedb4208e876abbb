package queue

import (
	"time"
)

// RetryPolicy bounds infrastructure retries: base delay grown by an
// exponential multiplier per attempt, capped at MaxDelay, for at most
// MaxAttempts total attempts. Business failures (unmet threshold, slippage)
// are terminal and never pass through this policy.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

// DefaultRetryPolicy mirrors the classic three-attempt exponential profile.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Multiplier:  2,
		MaxDelay:    time.Minute,
	}
}

// Exhausted reports whether the given zero-based attempt count has used up
// the policy's budget.
func (p RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts-1
}

// Delay returns the backoff before retrying after the given zero-based
// attempt: BaseDelay * Multiplier^attempt, capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		return p.BaseDelay
	}
	d := float64(p.BaseDelay)
	for range attempt {
		d *= p.Multiplier
		if p.MaxDelay > 0 && d >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	delay := time.Duration(d)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}
