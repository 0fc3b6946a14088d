package payments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStripeSecret = "whsec_test_secret"

func TestStripeVerifier_ValidSignature(t *testing.T) {
	v := NewStripeVerifier(StaticConfigProvider{StripeConfig: StripeConfig{WebhookSecret: testStripeSecret}})
	payload := []byte(stripePaymentSucceededJSON)
	header := signStripePayload(payload, testStripeSecret, time.Now())

	event, err := v.Verify(context.Background(), payload, &header)
	require.NoError(t, err)
	assert.True(t, event.Verified)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, StripeEventPaymentIntentSucceeded, string(event.Type))
	require.NotNil(t, event.Data)
	assert.Equal(t, "pi_1", event.Data.Object["id"])
}

func TestStripeVerifier_Rejections(t *testing.T) {
	payload := []byte(stripePaymentSucceededJSON)
	valid := signStripePayload(payload, testStripeSecret, time.Now())
	wrongSecret := signStripePayload(payload, "whsec_other", time.Now())
	stale := signStripePayload(payload, testStripeSecret, time.Now().Add(-time.Hour))
	empty := ""
	garbage := "not-a-signature"

	tests := []struct {
		name     string
		payload  []byte
		header   *string
		textCode string
	}{
		{"Missing header", payload, nil, TextCodeMissingSignature},
		{"Empty header", payload, &empty, TextCodeMissingSignature},
		{"Tampered body", []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_2"}}}`), &valid, TextCodeInvalidSignature},
		{"Wrong secret", payload, &wrongSecret, TextCodeInvalidSignature},
		{"Timestamp outside tolerance", payload, &stale, TextCodeInvalidSignature},
		{"Unparseable header", payload, &garbage, TextCodeInvalidSignature},
	}

	v := NewStripeVerifier(StaticConfigProvider{StripeConfig: StripeConfig{WebhookSecret: testStripeSecret}})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := v.Verify(context.Background(), tt.payload, tt.header)
			assert.Nil(t, event)
			require.Error(t, err)
			assert.True(t, IsVerificationError(err))
			assert.Equal(t, tt.textCode, ErrorTextCode(err))
		})
	}
}

func TestStripeVerifier_NoSecretAcceptsUnverified(t *testing.T) {
	v := NewStripeVerifier(StaticConfigProvider{})

	event, err := v.Verify(context.Background(), []byte(stripePaymentSucceededJSON), nil)
	require.NoError(t, err)
	assert.False(t, event.Verified)
	assert.Equal(t, "evt_1", event.ID)

	_, err = v.Verify(context.Background(), []byte(`{not json`), nil)
	require.Error(t, err)
	assert.Equal(t, TextCodeMalformedPayload, ErrorTextCode(err))
}

func TestStripeEvent_PayloadKeepsObject(t *testing.T) {
	v := NewStripeVerifier(StaticConfigProvider{})
	event, err := v.Verify(context.Background(), []byte(stripePaymentSucceededJSON), nil)
	require.NoError(t, err)

	payload, err := event.Payload()
	require.NoError(t, err)
	assert.Equal(t, "payment_intent.succeeded", payload["type"])
	data, ok := payload["data"].(map[string]interface{})
	require.True(t, ok)
	object, ok := data["object"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "pi_1", object["id"])
}
