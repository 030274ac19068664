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

func TestQueueProcessesAndRetries(t *testing.T) {
	var (
		mu       sync.Mutex
		attempts = map[string]int{}
	)
	handler := func(ctx context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts[job.ID]++
		if job.ID == "flaky" && attempts[job.ID] < 3 {
			return errors.New("transient")
		}
		return nil
	}
	q := NewQueue("test", handler, QueueConfig{Workers: 2, MaxRetries: 3, RetryDelay: time.Millisecond})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "ok"}))
	require.NoError(t, q.Enqueue(Job{ID: "flaky"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts["ok"] == 1 && attempts["flaky"] == 3
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Close(context.Background()))
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("permanent")
	}, QueueConfig{MaxRetries: 2, RetryDelay: time.Millisecond})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "bad"}))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueCloseDrainsBufferedJobs(t *testing.T) {
	release := make(chan struct{})
	var done int32
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		<-release
		atomic.AddInt32(&done, 1)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 8})
	q.Start(context.Background())

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(Job{ID: "j"}))
	}
	close(release)
	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, int32(5), atomic.LoadInt32(&done))

	err := q.Enqueue(Job{ID: "late"})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "early"}))
	assert.NoError(t, q.Close(context.Background()))
}
