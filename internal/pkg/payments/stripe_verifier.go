package payments

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/ManuelReschke/LinerHub/app/models"
)

// StripeEvent is a Stripe event in the SDK's decoded form.
type StripeEvent struct {
	stripe.Event
	// Verified is false when the event was accepted without a webhook secret.
	Verified bool
}

// Payload returns the event as the generic map carried by queue jobs.
func (e *StripeEvent) Payload() (map[string]interface{}, error) {
	return toPayload(e.Event)
}

// StripeVerifier authenticates Stripe webhook deliveries.
type StripeVerifier struct {
	config ConfigProvider
}

// NewStripeVerifier creates a verifier reading the webhook secret from config.
func NewStripeVerifier(config ConfigProvider) *StripeVerifier {
	return &StripeVerifier{config: config}
}

// Verify checks the Stripe-Signature header against the raw body and returns the
// decoded event. Without a configured webhook secret the body is decoded unverified.
func (v *StripeVerifier) Verify(ctx context.Context, raw []byte, signatureHeader *string) (*StripeEvent, error) {
	cfg, err := v.config.Stripe(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.WebhookSecret == "" {
		log.Warn("[StripeWebhook] No webhook secret configured, accepting event WITHOUT signature verification")
		var event stripe.Event
		if err := json.Unmarshal(raw, &event); err != nil {
			return nil, errMalformedPayload(models.PaymentProviderStripe, err)
		}
		return &StripeEvent{Event: event}, nil
	}

	if signatureHeader == nil || strings.TrimSpace(*signatureHeader) == "" {
		return nil, errMissingSignature(models.PaymentProviderStripe, "missing Stripe-Signature header")
	}

	event, err := webhook.ConstructEventWithOptions(raw, *signatureHeader, cfg.WebhookSecret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, errInvalidSignature(models.PaymentProviderStripe, err)
	}
	return &StripeEvent{Event: event, Verified: true}, nil
}

func toPayload(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
