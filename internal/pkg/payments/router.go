package payments

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v82"

	"github.com/ManuelReschke/LinerHub/internal/pkg/jobqueue"
)

// Event types routed to reconciliation.
const (
	StripeEventPaymentIntentSucceeded = string(stripe.EventTypePaymentIntentSucceeded)
	StripeEventPayoutPaid             = string(stripe.EventTypePayoutPaid)

	PayPalEventCaptureCompleted    = "PAYMENT.CAPTURE.COMPLETED"
	PayPalEventPayoutsBatchSuccess = "PAYMENT.PAYOUTSBATCH.SUCCESS"
)

// Enqueuer schedules background jobs.
type Enqueuer interface {
	EnqueueJobContext(ctx context.Context, jobType jobqueue.JobType, payload map[string]interface{}) (*jobqueue.Job, error)
}

// StripeRouter dispatches verified Stripe events to reconciliation jobs.
type StripeRouter struct {
	queue Enqueuer
}

// NewStripeRouter creates a router enqueueing onto queue.
func NewStripeRouter(queue Enqueuer) *StripeRouter {
	return &StripeRouter{queue: queue}
}

// Route enqueues the reconciliation job for known event types and drops the rest.
// Only enqueue failures are returned; undecodable objects fail permanently.
func (r *StripeRouter) Route(ctx context.Context, event *StripeEvent) error {
	switch string(event.Type) {
	case StripeEventPaymentIntentSucceeded:
		req, err := StripePaymentRequest(&event.Event)
		if err != nil {
			return jobqueue.Permanent(err)
		}
		return enqueue(ctx, r.queue, jobqueue.JobTypeReconcilePayment, req.ToMap(), "StripeWebhook", event.ID)
	case StripeEventPayoutPaid:
		req, err := StripePayoutRequest(&event.Event)
		if err != nil {
			return jobqueue.Permanent(err)
		}
		return enqueue(ctx, r.queue, jobqueue.JobTypeReconcilePayout, req.ToMap(), "StripeWebhook", event.ID)
	default:
		log.Infof("[StripeWebhook] Ignoring event %s of type %s", event.ID, event.Type)
		return nil
	}
}

// PayPalRouter dispatches verified PayPal events to reconciliation jobs.
type PayPalRouter struct {
	queue Enqueuer
}

// NewPayPalRouter creates a router enqueueing onto queue.
func NewPayPalRouter(queue Enqueuer) *PayPalRouter {
	return &PayPalRouter{queue: queue}
}

// Route enqueues the reconciliation job for known event types and drops the rest.
func (r *PayPalRouter) Route(ctx context.Context, event *PayPalEvent) error {
	switch event.EventType {
	case PayPalEventCaptureCompleted:
		req, err := PayPalCaptureRequest(event)
		if err != nil {
			return jobqueue.Permanent(err)
		}
		return enqueue(ctx, r.queue, jobqueue.JobTypeReconcilePayment, req.ToMap(), "PayPalWebhook", event.ID)
	case PayPalEventPayoutsBatchSuccess:
		req, err := PayPalPayoutRequest(event)
		if err != nil {
			return jobqueue.Permanent(err)
		}
		return enqueue(ctx, r.queue, jobqueue.JobTypeReconcilePayout, req.ToMap(), "PayPalWebhook", event.ID)
	default:
		log.Infof("[PayPalWebhook] Ignoring event %s of type %s", event.ID, event.EventType)
		return nil
	}
}

func enqueue(ctx context.Context, queue Enqueuer, jobType jobqueue.JobType, payload map[string]interface{}, component, eventID string) error {
	job, err := queue.EnqueueJobContext(ctx, jobType, payload)
	if err != nil {
		return fmt.Errorf("enqueue %s for event %s: %w", jobType, eventID, err)
	}
	log.Infof("[%s] Event %s routed to %s job %s", component, eventID, jobType, job.ID)
	return nil
}
