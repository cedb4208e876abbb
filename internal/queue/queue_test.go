package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solroute/swapd/internal/domain"
)

func newTestQueue(capacity int) *Queue {
	return New(capacity, slog.New(slog.DiscardHandler))
}

func job(id string) domain.Job {
	return domain.Job{OrderID: id, Type: domain.OrderTypeMarket, InputToken: "SOL", OutputToken: "USDC", Amount: 1}
}

func TestEnqueueDequeueFIFO(t *testing.T) {
	q := newTestQueue(8)

	for i := range 3 {
		require.NoError(t, q.Enqueue(job(fmt.Sprintf("o%d", i))))
	}
	require.Equal(t, 3, q.Len())

	for i := range 3 {
		j, err := q.Dequeue(context.Background())
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("o%d", i), j.OrderID)
	}
	assert.Equal(t, 0, q.Len())
}

func TestEnqueueFull(t *testing.T) {
	q := newTestQueue(1)

	require.NoError(t, q.Enqueue(job("o1")))
	err := q.Enqueue(job("o2"))
	require.ErrorIs(t, err, domain.ErrQueueFull)
}

func TestEnqueueDuplicate(t *testing.T) {
	q := newTestQueue(4)

	require.NoError(t, q.Enqueue(job("o1")))
	require.Error(t, q.Enqueue(job("o1")))
}

func TestRemoveBeforeClaim(t *testing.T) {
	q := newTestQueue(4)

	require.NoError(t, q.Enqueue(job("o1")))
	require.NoError(t, q.Enqueue(job("o2")))
	require.NoError(t, q.Remove("o1"))

	// o1 was removed before any claim; the next dequeue skips it.
	j, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "o2", j.OrderID)
}

func TestRemoveAfterClaimFails(t *testing.T) {
	q := newTestQueue(4)

	require.NoError(t, q.Enqueue(job("o1")))
	_, err := q.Dequeue(context.Background())
	require.NoError(t, err)

	err = q.Remove("o1")
	require.ErrorIs(t, err, domain.ErrJobClaimed)
}

func TestRemoveUnknownFails(t *testing.T) {
	q := newTestQueue(4)
	require.ErrorIs(t, q.Remove("nope"), domain.ErrJobClaimed)
}

func TestDequeueBlocksUntilEnqueue(t *testing.T) {
	q := newTestQueue(4)

	done := make(chan domain.Job, 1)
	go func() {
		j, err := q.Dequeue(context.Background())
		if err == nil {
			done <- j
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Enqueue(job("o1")))

	select {
	case j := <-done:
		assert.Equal(t, "o1", j.OrderID)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not wake up")
	}
}

func TestDequeueHonoursContext(t *testing.T) {
	q := newTestQueue(4)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEachJobClaimedByExactlyOneWorker(t *testing.T) {
	q := newTestQueue(64)

	const jobs = 32
	for i := range jobs {
		require.NoError(t, q.Enqueue(job(fmt.Sprintf("o%d", i))))
	}

	var mu sync.Mutex
	claims := make(map[string]int)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				j, err := q.Dequeue(context.Background())
				if err != nil {
					return
				}
				mu.Lock()
				claims[j.OrderID]++
				mu.Unlock()
			}
		}()
	}

	// Let the workers drain everything, then shut them down.
	for q.Len() > 0 {
		time.Sleep(5 * time.Millisecond)
	}
	q.Close()
	wg.Wait()

	require.Len(t, claims, jobs)
	for id, n := range claims {
		assert.Equal(t, 1, n, "job %s claimed %d times", id, n)
	}
}

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2, MaxDelay: time.Minute}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{10, 60 * time.Second},
		{100, 60 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
	assert.Equal(t, time.Second, p.Delay(-1))
}

func TestRetryPolicyExhausted(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2}

	assert.False(t, p.Exhausted(0))
	assert.False(t, p.Exhausted(1))
	assert.True(t, p.Exhausted(2))
	assert.True(t, p.Exhausted(5))
}
