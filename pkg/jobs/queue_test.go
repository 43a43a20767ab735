package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcome struct {
	job Job
	err error
}

func TestQueueProcessesJobs(t *testing.T) {
	results := make(chan outcome, 4)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		return nil
	}, QueueConfig{Workers: 2, OnResult: func(job Job, err error) { results <- outcome{job, err} }})

	require.Error(t, q.Enqueue(context.Background(), Job{ID: "early"}))

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(context.Background(), Job{ID: "a", Type: "ping"}))
	require.NoError(t, q.Enqueue(context.Background(), Job{ID: "b", Type: "ping"}))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case res := <-results:
			assert.NoError(t, res.err)
			assert.False(t, res.job.Enqueued.IsZero())
			seen[res.job.ID] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for job")
		}
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true}, seen)
}

func TestQueueRetriesUntilExhausted(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	results := make(chan outcome, 1)
	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		mu.Lock()
		attempts++
		mu.Unlock()
		return errors.New("boom")
	}, QueueConfig{
		MaxRetries: 2,
		RetryDelay: 5 * time.Millisecond,
		OnResult:   func(job Job, err error) { results <- outcome{job, err} },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(context.Background(), Job{ID: "x"}))

	select {
	case res := <-results:
		assert.EqualError(t, res.err, "boom")
		assert.Equal(t, 3, res.job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for failure")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
}

func TestQueueStopRejectsNewJobs(t *testing.T) {
	q := NewQueue("stop", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	q.Start(context.Background())
	q.Stop()
	q.Stop()

	assert.Error(t, q.Enqueue(context.Background(), Job{ID: "late"}))
}

func TestQueueEnqueueHonoursCallerContext(t *testing.T) {
	release := make(chan struct{})
	q := NewQueue("full", func(ctx context.Context, job Job) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer q.Stop()
	defer close(release)

	require.NoError(t, q.Enqueue(context.Background(), Job{ID: "running"}))
	require.Eventually(t, func() bool { return len(q.jobs) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.TryEnqueue(Job{ID: "buffered"}))

	err := q.TryEnqueue(Job{ID: "overflow"})
	assert.ErrorIs(t, err, ErrQueueFull)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err = q.Enqueue(ctx, Job{ID: "waiting"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
