package payments

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"

	"github.com/ManuelReschke/LinerHub/app/models"
	"github.com/ManuelReschke/LinerHub/internal/pkg/jobqueue"
)

// HandlerRegistry is the part of the job queue the payment jobs bind to.
type HandlerRegistry interface {
	RegisterHandler(jobType jobqueue.JobType, handler jobqueue.HandlerFunc)
}

// RegisterJobHandlers binds webhook routing and reconciliation to their job types.
func RegisterJobHandlers(registry HandlerRegistry, stripeRouter *StripeRouter, payPalRouter *PayPalRouter, reconciler *Reconciler) {
	registry.RegisterHandler(jobqueue.JobTypeRouteWebhook, func(ctx context.Context, job *jobqueue.Job) error {
		return RouteWebhookJob(ctx, job, stripeRouter, payPalRouter)
	})
	registry.RegisterHandler(jobqueue.JobTypeReconcilePayment, func(ctx context.Context, job *jobqueue.Job) error {
		req, err := ReconciliationRequestFromMap(job.Payload)
		if err != nil {
			return jobqueue.Permanent(fmt.Errorf("decode reconcile_payment payload: %w", err))
		}
		return reconciler.ReconcilePayment(ctx, *req)
	})
	registry.RegisterHandler(jobqueue.JobTypeReconcilePayout, func(ctx context.Context, job *jobqueue.Job) error {
		req, err := PayoutRequestFromMap(job.Payload)
		if err != nil {
			return jobqueue.Permanent(fmt.Errorf("decode reconcile_payout payload: %w", err))
		}
		return reconciler.ReconcilePayout(ctx, *req)
	})
}

// RouteWebhookJob decodes a route_webhook job back into the provider event and routes it.
func RouteWebhookJob(ctx context.Context, job *jobqueue.Job, stripeRouter *StripeRouter, payPalRouter *PayPalRouter) error {
	payload, err := jobqueue.WebhookJobPayloadFromMap(job.Payload)
	if err != nil {
		return jobqueue.Permanent(fmt.Errorf("decode route_webhook payload: %w", err))
	}
	raw, err := payload.EventJSON()
	if err != nil {
		return jobqueue.Permanent(err)
	}

	switch payload.Provider {
	case models.PaymentProviderStripe:
		var event stripe.Event
		if err := json.Unmarshal(raw, &event); err != nil {
			return jobqueue.Permanent(fmt.Errorf("decode stripe event: %w", err))
		}
		return stripeRouter.Route(ctx, &StripeEvent{Event: event})
	case models.PaymentProviderPayPal:
		event, err := ParsePayPalEvent(raw)
		if err != nil {
			return jobqueue.Permanent(err)
		}
		return payPalRouter.Route(ctx, event)
	default:
		return jobqueue.Permanent(fmt.Errorf("unsupported webhook provider %q", payload.Provider))
	}
}

// WebhookJobPayload builds the route_webhook payload for a verified event.
func WebhookJobPayload(provider string, event map[string]interface{}) map[string]interface{} {
	return jobqueue.WebhookJobPayload{Provider: provider, Event: event}.ToMap()
}
