package jobqueue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewQueueWithClient(client, 2), mr
}

// TestNewQueue tests the queue constructor
func TestNewQueue(t *testing.T) {
	tests := []struct {
		name            string
		workers         int
		expectedWorkers int
	}{
		{"Valid worker count", 5, 5},
		{"Zero workers", 0, 3},
		{"Negative workers", -1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := NewQueueWithClient(nil, tt.workers)

			assert.NotNil(t, queue)
			assert.Equal(t, tt.expectedWorkers, queue.workers)
			assert.Equal(t, tt.expectedWorkers, cap(queue.workerPool))
			assert.NotNil(t, queue.stopCh)
			assert.NotNil(t, queue.handlers)
			assert.False(t, queue.running)
		})
	}
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "job:", JobKeyPrefix)
	assert.Equal(t, "job_queue", JobQueueKey)
	assert.Equal(t, "job_processing", JobProcessingKey)
	assert.Equal(t, "job_delayed", JobDelayedKey)
	assert.Equal(t, "job_stats", JobStatsKey)

	assert.Equal(t, 3, DefaultMaxRetries)
	assert.Equal(t, 24*time.Hour, JobTTL)
}

func TestEnqueueAndProcess(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	var seen *Job
	q.RegisterHandler(JobTypeRouteWebhook, func(ctx context.Context, job *Job) error {
		seen = job
		return nil
	})

	job, err := q.EnqueueJob(JobTypeRouteWebhook, map[string]interface{}{"provider": "stripe"})
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, job.Status)

	size, err := q.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)

	ok, err := q.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NotNil(t, seen)
	assert.Equal(t, job.ID, seen.ID)
	assert.Equal(t, "stripe", seen.Payload["provider"])

	// completed jobs are removed from Redis
	_, err = q.GetJob(ctx, job.ID)
	assert.ErrorIs(t, err, redis.Nil)

	processing, err := q.GetProcessingSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, processing)

	stats, err := q.GetJobStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[JobStatusCompleted])

	ok, err = q.ProcessNext(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProcessRetriesWithBackoff(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := base
	q.now = func() time.Time { return now }

	var calls int32
	q.RegisterHandler(JobTypeReconcilePayment, func(ctx context.Context, job *Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("database unavailable")
	})

	job, err := q.EnqueueJob(JobTypeReconcilePayment, map[string]interface{}{})
	require.NoError(t, err)

	_, err = q.ProcessNext(ctx)
	require.NoError(t, err)

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusRetrying, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	assert.Equal(t, "database unavailable", stored.ErrorMsg)

	delayed, err := q.GetDelayedSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), delayed)

	// not due yet
	promoted, err := q.PromoteDueJobs(ctx)
	require.NoError(t, err)
	assert.Zero(t, promoted)

	now = base.Add(2 * time.Second)
	promoted, err = q.PromoteDueJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)

	_, err = q.ProcessNext(ctx)
	require.NoError(t, err)

	// second retry waits twice as long
	now = now.Add(3 * time.Second)
	promoted, err = q.PromoteDueJobs(ctx)
	require.NoError(t, err)
	assert.Zero(t, promoted)
	now = now.Add(time.Second)
	promoted, err = q.PromoteDueJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)

	_, err = q.ProcessNext(ctx)
	require.NoError(t, err)

	stored, err = q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, stored.Status)
	assert.Equal(t, 3, stored.RetryCount)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	delayed, err = q.GetDelayedSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, delayed)

	stats, err := q.GetJobStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[JobStatusFailed])
}

func TestProcessPermanentErrorSkipsRetry(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	q.RegisterHandler(JobTypeRouteWebhook, func(ctx context.Context, job *Job) error {
		return Permanent(errors.New("bad payload"))
	})

	job, err := q.EnqueueJob(JobTypeRouteWebhook, nil)
	require.NoError(t, err)
	_, err = q.ProcessNext(ctx)
	require.NoError(t, err)

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, stored.Status)

	delayed, err := q.GetDelayedSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, delayed)
}

func TestProcessUnknownJobType(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	job, err := q.EnqueueJob(JobType("mystery"), nil)
	require.NoError(t, err)
	_, err = q.ProcessNext(ctx)
	require.NoError(t, err)

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMsg, ErrNoHandler.Error())
}

func TestProcessHandlerPanicIsRetried(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	q.RegisterHandler(JobTypeReconcilePayout, func(ctx context.Context, job *Job) error {
		panic("nil map")
	})

	job, err := q.EnqueueJob(JobTypeReconcilePayout, nil)
	require.NoError(t, err)
	_, err = q.ProcessNext(ctx)
	require.NoError(t, err)

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusRetrying, stored.Status)
	assert.Contains(t, stored.ErrorMsg, "handler panic")
}

func TestRecoverStuckJobs(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	job, err := q.EnqueueJob(JobTypeRouteWebhook, nil)
	require.NoError(t, err)

	// simulate a worker that crashed after dequeue
	dequeued, err := q.dequeueJob(ctx, 0)
	require.NoError(t, err)
	dequeued.MarkAsProcessing()
	q.updateJob(ctx, dequeued)

	recovered, err := q.RecoverStuckJobs(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, recovered)

	q.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	recovered, err = q.RecoverStuckJobs(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)

	pending, err := mr.List(JobQueueKey)
	require.NoError(t, err)
	assert.Equal(t, []string{job.ID}, pending)
	assert.False(t, mr.Exists(JobProcessingKey))

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, stored.Status)
}

func TestRecoverStuckJobsDropsOrphanEntries(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	_, err := mr.Lpush(JobProcessingKey, "ghost")
	require.NoError(t, err)

	recovered, err := q.RecoverStuckJobs(ctx, time.Minute)
	require.NoError(t, err)
	assert.Zero(t, recovered)
	assert.False(t, mr.Exists(JobProcessingKey))
}

func TestQueueStartStopDrainsJobs(t *testing.T) {
	q, _ := newTestQueue(t)

	done := make(chan string, 1)
	q.RegisterHandler(JobTypeRouteWebhook, func(ctx context.Context, job *Job) error {
		done <- job.ID
		return nil
	})

	q.Start()
	defer q.Stop()

	job, err := q.EnqueueJob(JobTypeRouteWebhook, nil)
	require.NoError(t, err)

	select {
	case id := <-done:
		assert.Equal(t, job.ID, id)
	case <-time.After(5 * time.Second):
		t.Fatal("job was not processed by workers")
	}
}
