package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobType(t *testing.T) {
	tests := []struct {
		name     string
		jobType  JobType
		expected string
	}{
		{"Route Webhook", JobTypeRouteWebhook, "route_webhook"},
		{"Reconcile Payment", JobTypeReconcilePayment, "reconcile_payment"},
		{"Reconcile Payout", JobTypeReconcilePayout, "reconcile_payout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.jobType))
		})
	}
}

func TestJob_IsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		job       *Job
		retryable bool
	}{
		{"Failed job with retries remaining", &Job{Status: JobStatusFailed, RetryCount: 1, MaxRetries: 3}, true},
		{"Failed job with no retries remaining", &Job{Status: JobStatusFailed, RetryCount: 3, MaxRetries: 3}, false},
		{"Completed job", &Job{Status: JobStatusCompleted, RetryCount: 1, MaxRetries: 3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, tt.job.IsRetryable())
		})
	}
}

func TestJob_StatusTransitions(t *testing.T) {
	job := &Job{Status: JobStatusPending, MaxRetries: 3}
	before := time.Now()

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)
	assert.False(t, job.UpdatedAt.Before(before))

	job.MarkAsFailed("boom")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "boom", job.ErrorMsg)
	assert.Equal(t, 1, job.RetryCount)

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.ErrorMsg)
}

func TestWebhookJobPayloadRoundTrip(t *testing.T) {
	in := WebhookJobPayload{
		Provider: "stripe",
		Event: map[string]interface{}{
			"id":   "evt_1",
			"type": "payment_intent.succeeded",
		},
	}

	out, err := WebhookJobPayloadFromMap(in.ToMap())
	require.NoError(t, err)
	assert.Equal(t, "stripe", out.Provider)
	assert.Equal(t, "evt_1", out.Event["id"])

	raw, err := out.EventJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"evt_1","type":"payment_intent.succeeded"}`, string(raw))
}

func TestBackoffPolicyNextDelay(t *testing.T) {
	p := BackoffPolicy{Initial: 2 * time.Second, Max: 10 * time.Second}

	assert.Equal(t, 2*time.Second, p.NextDelay(1))
	assert.Equal(t, 4*time.Second, p.NextDelay(2))
	assert.Equal(t, 8*time.Second, p.NextDelay(3))
	assert.Equal(t, 10*time.Second, p.NextDelay(4))
	assert.Equal(t, 10*time.Second, p.NextDelay(12))

	assert.Equal(t, time.Second, BackoffPolicy{}.NextDelay(1))
}
