package payments

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"github.com/ManuelReschke/LinerHub/app/models"
)

func decodeStripeEvent(t *testing.T, raw string) *stripe.Event {
	t.Helper()
	var event stripe.Event
	require.NoError(t, json.Unmarshal([]byte(raw), &event))
	return &event
}

func TestStripePaymentRequest(t *testing.T) {
	req, err := StripePaymentRequest(decodeStripeEvent(t, stripePaymentSucceededJSON))
	require.NoError(t, err)

	assert.Equal(t, models.PaymentProviderStripe, req.Provider)
	assert.Equal(t, "evt_1", req.EventID)
	assert.Equal(t, "m1", req.MissionID)
	assert.Equal(t, int64(1800), req.AmountCents, "amount_received wins over amount")
	assert.Equal(t, "EUR", req.Currency)
	assert.Equal(t, "pi_1", req.CorrelatingID)
	assert.Equal(t, models.MetaSourcePaymentIntent, req.CorrelationKey)
}

func TestStripePaymentRequest_FallsBackToAmount(t *testing.T) {
	raw := `{"id":"evt_2","type":"payment_intent.succeeded","data":{"object":{"id":"pi_2","object":"payment_intent","amount":999,"currency":"usd"}}}`
	req, err := StripePaymentRequest(decodeStripeEvent(t, raw))
	require.NoError(t, err)
	assert.Equal(t, int64(999), req.AmountCents)
	assert.Equal(t, "USD", req.Currency)
	assert.Empty(t, req.MissionID)
}

func TestStripePayoutRequest(t *testing.T) {
	req, err := StripePayoutRequest(decodeStripeEvent(t, stripePayoutPaidJSON))
	require.NoError(t, err)

	assert.True(t, req.HasCorrelation())
	assert.Equal(t, []PayoutMatch{{MetaKey: models.MetaSourcePaymentIntent, Value: "pi_1"}}, req.Matches)
	assert.Equal(t, models.WalletMethodStripePayout, req.Method)
	assert.Equal(t, "po_1", req.Meta[models.MetaPayoutID])
	assert.Equal(t, "stripe:source_payment_intent:pi_1", req.OrphanKey())
}

func TestStripeRequest_MissingObject(t *testing.T) {
	_, err := StripePaymentRequest(decodeStripeEvent(t, `{"id":"evt_3","type":"payment_intent.succeeded"}`))
	assert.Error(t, err)
}

func TestPayPalCaptureRequest_Amounts(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected int64
	}{
		{"Decimal string", `"18.50"`, 1850},
		{"Rounding", `"0.29"`, 29},
		{"Whole number", `"42"`, 4200},
		{"JSON number", `12.34`, 1234},
		{"Missing", `""`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"id":"E","event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"CAP","custom_id":" m9 ","amount":{"value":` + tt.value + `,"currency_code":"eur"}}}`
			event, err := ParsePayPalEvent([]byte(raw))
			require.NoError(t, err)

			req, err := PayPalCaptureRequest(event)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, req.AmountCents)
			assert.Equal(t, "m9", req.MissionID)
			assert.Equal(t, "EUR", req.Currency)
			assert.Equal(t, models.MetaSourceCaptureID, req.CorrelationKey)
		})
	}
}

func TestPayPalCaptureRequest_UnparseableAmount(t *testing.T) {
	raw := `{"id":"E","event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"CAP","custom_id":"m9","amount":{"value":"12,50","currency_code":"eur"}}}`
	event, err := ParsePayPalEvent([]byte(raw))
	require.NoError(t, err)

	_, err = PayPalCaptureRequest(event)
	assert.ErrorContains(t, err, `unparseable amount "12,50"`)
}

func TestPayPalPayoutRequest(t *testing.T) {
	event, err := ParsePayPalEvent([]byte(payPalPayoutsBatchJSON))
	require.NoError(t, err)

	req, err := PayPalPayoutRequest(event)
	require.NoError(t, err)
	assert.Equal(t, []PayoutMatch{
		{MetaKey: models.MetaSenderBatchID, Value: "SB-1"},
		{MetaKey: models.MetaPayoutBatchID, Value: "PB-1"},
	}, req.Matches)
	assert.Equal(t, models.WalletMethodPayPalPayout, req.Method)
	assert.Equal(t, "paypal:sender_batch_id:SB-1", req.OrphanKey())
}

func TestPayoutRequest_WithoutIDs(t *testing.T) {
	event, err := ParsePayPalEvent([]byte(`{"id":"E2","event_type":"PAYMENT.PAYOUTSBATCH.SUCCESS","resource":{"batch_header":{}}}`))
	require.NoError(t, err)

	req, err := PayPalPayoutRequest(event)
	require.NoError(t, err)
	assert.False(t, req.HasCorrelation())
	assert.Equal(t, "paypal:E2", req.OrphanKey())
}

func TestRequestsSurviveJobPayload(t *testing.T) {
	payment := ReconciliationRequest{
		Provider:       models.PaymentProviderPayPal,
		EventID:        "E",
		MissionID:      "m1",
		AmountCents:    1850,
		Currency:       "USD",
		CorrelatingID:  "CAP",
		CorrelationKey: models.MetaSourceCaptureID,
	}
	// job payloads pass through JSON in Redis
	raw, err := json.Marshal(payment.ToMap())
	require.NoError(t, err)
	var stored map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &stored))

	decoded, err := ReconciliationRequestFromMap(stored)
	require.NoError(t, err)
	assert.Equal(t, payment, *decoded)

	payout, err := PayoutRequestFromMap(stripePayout().ToMap())
	require.NoError(t, err)
	assert.Equal(t, stripePayout().Matches, payout.Matches)
	assert.Equal(t, "po_1", payout.Meta[models.MetaPayoutID])
}
