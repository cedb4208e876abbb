package executor

import (
	"context"
	"sync"
	"time"

	"github.com/solroute/swapd/internal/domain"
)

// localLimiterPoll is the retry interval used by LocalLimiter.Wait.
const localLimiterPoll = 10 * time.Millisecond

// LocalLimiter is an in-process sliding-window rate limiter. It carries the
// same contract as the Redis-backed limiter and serves single-process
// deployments and tests.
type LocalLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

// NewLocalLimiter creates an empty LocalLimiter.
func NewLocalLimiter() *LocalLimiter {
	return &LocalLimiter{windows: make(map[string][]time.Time)}
}

// Allow reports whether a request for key fits in the rolling window, and
// counts it when it does.
func (l *LocalLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-window)

	kept := l.windows[key][:0]
	for _, ts := range l.windows[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit {
		l.windows[key] = kept
		return false, nil
	}

	l.windows[key] = append(kept, now)
	return true, nil
}

// Wait blocks until a slot is available or the context is cancelled.
func (l *LocalLimiter) Wait(ctx context.Context, key string, limit int, window time.Duration) error {
	for {
		allowed, err := l.Allow(ctx, key, limit, window)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		timer := time.NewTimer(localLimiterPoll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

var _ domain.RateLimiter = (*LocalLimiter)(nil)
