package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/LinerHub/app/models"
	"github.com/ManuelReschke/LinerHub/internal/pkg/jobqueue"
	"github.com/ManuelReschke/LinerHub/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/LinerHub/internal/pkg/payments"
)

const webhookRequestTimeout = 15 * time.Second

// StripeEventVerifier authenticates a raw Stripe delivery
type StripeEventVerifier interface {
	Verify(ctx context.Context, raw []byte, signatureHeader *string) (*payments.StripeEvent, error)
}

// PayPalEventVerifier authenticates a raw PayPal delivery
type PayPalEventVerifier interface {
	Verify(ctx context.Context, raw []byte, headers http.Header) (*payments.PayPalEvent, error)
}

// HealthRecorder receives the outcome of each verification
type HealthRecorder interface {
	RecordSuccess(ctx context.Context, provider, message string)
	RecordFailure(ctx context.Context, provider, message string)
}

// WebhookController receives provider webhooks. It only verifies and enqueues;
// routing and reconciliation happen on the job queue.
type WebhookController struct {
	stripe StripeEventVerifier
	paypal PayPalEventVerifier
	health HealthRecorder
	queue  payments.Enqueuer
}

// NewWebhookController creates a webhook controller
func NewWebhookController(stripe StripeEventVerifier, paypal PayPalEventVerifier, health HealthRecorder, queue payments.Enqueuer) *WebhookController {
	return &WebhookController{
		stripe: stripe,
		paypal: paypal,
		health: health,
		queue:  queue,
	}
}

// HandleStripeWebhook handles POST /webhooks/stripe
func (wc *WebhookController) HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	var signature *string
	if v := c.Get("Stripe-Signature"); v != "" {
		signature = &v
	}

	ctx, cancel := context.WithTimeout(context.Background(), webhookRequestTimeout)
	defer cancel()

	event, err := wc.stripe.Verify(ctx, rawBody, signature)
	if err != nil {
		return wc.rejected(ctx, c, models.PaymentProviderStripe, err)
	}

	payload, err := event.Payload()
	if err != nil {
		log.Errorf("[StripeWebhook] Failed to encode event %s: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "enqueue_failed"})
	}
	return wc.accepted(ctx, c, models.PaymentProviderStripe, event.ID, string(event.Type), payload)
}

// HandlePayPalWebhook handles POST /webhooks/paypal
func (wc *WebhookController) HandlePayPalWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	headers := requestHeaders(c)

	ctx, cancel := context.WithTimeout(context.Background(), webhookRequestTimeout)
	defer cancel()

	event, err := wc.paypal.Verify(ctx, rawBody, headers)
	if err != nil {
		return wc.rejected(ctx, c, models.PaymentProviderPayPal, err)
	}

	payload, err := event.Payload()
	if err != nil {
		log.Errorf("[PayPalWebhook] Failed to encode event %s: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "enqueue_failed"})
	}
	return wc.accepted(ctx, c, models.PaymentProviderPayPal, event.ID, event.EventType, payload)
}

func (wc *WebhookController) rejected(ctx context.Context, c *fiber.Ctx, provider string, err error) error {
	log.Warnf("[%s] Rejected delivery from %s: %v", webhookComponent(provider), clientIP(c), err)
	wc.health.RecordFailure(ctx, provider, err.Error())
	if cerr := counter.AddWebhookRejected(provider); cerr != nil {
		log.Errorf("[%s] Failed to count rejected delivery: %v", webhookComponent(provider), cerr)
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid signature"})
}

func (wc *WebhookController) accepted(ctx context.Context, c *fiber.Ctx, provider, eventID, eventType string, payload map[string]interface{}) error {
	wc.health.RecordSuccess(ctx, provider, fmt.Sprintf("event %s (%s) accepted", eventID, eventType))
	if cerr := counter.AddWebhookAccepted(provider); cerr != nil {
		log.Errorf("[%s] Failed to count accepted delivery: %v", webhookComponent(provider), cerr)
	}

	job, err := wc.queue.EnqueueJobContext(ctx, jobqueue.JobTypeRouteWebhook, payments.WebhookJobPayload(provider, payload))
	if err != nil {
		log.Errorf("[%s] Failed to enqueue event %s: %v", webhookComponent(provider), eventID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "enqueue_failed"})
	}

	log.Infof("[%s] Event %s (%s) queued as job %s", webhookComponent(provider), eventID, eventType, job.ID)
	return c.Status(fiber.StatusAccepted).Send(nil)
}

func webhookComponent(provider string) string {
	switch provider {
	case models.PaymentProviderStripe:
		return "StripeWebhook"
	case models.PaymentProviderPayPal:
		return "PayPalWebhook"
	default:
		return "Webhook"
	}
}
