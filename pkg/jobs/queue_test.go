package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	queued, err := q.Enqueue(context.Background(), Job{Type: "noop"})
	assert.False(t, queued)
	assert.Error(t, err)
}

func TestQueueCoalescesPendingKeys(t *testing.T) {
	gate := make(chan struct{})
	var handled int32
	var once sync.Once
	started := make(chan struct{})

	q := NewQueue("coalesce", func(ctx context.Context, job Job) error {
		if job.Key == "blocker" {
			once.Do(func() { close(started) })
			<-gate
		}
		atomic.AddInt32(&handled, 1)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 8})
	q.Start(context.Background())
	defer q.Stop()

	queued, err := q.Enqueue(context.Background(), Job{Key: "blocker", Type: "block"})
	require.NoError(t, err)
	require.True(t, queued)
	<-started

	queued, err = q.Enqueue(context.Background(), Job{Key: "weights", Type: "weights_changed"})
	require.NoError(t, err)
	assert.True(t, queued)

	queued, err = q.Enqueue(context.Background(), Job{Key: "weights", Type: "weights_changed"})
	require.NoError(t, err)
	assert.False(t, queued)
	assert.Equal(t, 1, q.Pending())

	close(gate)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&handled) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, q.Pending())
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32
	results := make(chan error, 4)
	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{
		Workers:    1,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		OnResult:   func(job Job, err error) { results <- err },
	})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue(context.Background(), Job{Key: "teacher:t-1", Type: "rating_changed"})
	require.NoError(t, err)

	require.Error(t, <-results)
	require.Error(t, <-results)
	require.NoError(t, <-results)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}
