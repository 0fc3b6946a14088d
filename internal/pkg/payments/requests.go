package payments

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v82"

	"github.com/ManuelReschke/LinerHub/app/models"
)

// ReconciliationRequest is a provider independent payment-succeeded event.
type ReconciliationRequest struct {
	Provider    string `json:"provider"`
	EventID     string `json:"event_id"`
	MissionID   string `json:"mission_id"`
	AmountCents int64  `json:"amount_cents"`
	// Currency is uppercased, or empty when the event carried none.
	Currency string `json:"currency"`
	// CorrelatingID is the payment intent or capture id.
	CorrelatingID string `json:"correlating_id"`
	// CorrelationKey names the meta key the liner credit stores CorrelatingID under.
	CorrelationKey string `json:"correlation_key"`
}

// ToMap converts the request to a job payload
func (r ReconciliationRequest) ToMap() map[string]interface{} {
	m, _ := toPayload(r)
	return m
}

// ReconciliationRequestFromMap decodes a job payload
func ReconciliationRequestFromMap(data map[string]interface{}) (*ReconciliationRequest, error) {
	var req ReconciliationRequest
	if err := fromPayload(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// PayoutMatch is one meta lookup used to find the credit a payout completes.
type PayoutMatch struct {
	MetaKey string `json:"meta_key"`
	Value   string `json:"value"`
}

// PayoutRequest is a provider independent payout-paid event.
type PayoutRequest struct {
	Provider string `json:"provider"`
	EventID  string `json:"event_id"`
	// Matches are tried in order, the first hit wins.
	Matches []PayoutMatch          `json:"matches"`
	Method  string                 `json:"method"`
	Meta    map[string]interface{} `json:"meta"`
}

// HasCorrelation reports whether any match carries a value.
func (r PayoutRequest) HasCorrelation() bool {
	for _, m := range r.Matches {
		if m.Value != "" {
			return true
		}
	}
	return false
}

// OrphanKey identifies the payout in the orphan set.
func (r PayoutRequest) OrphanKey() string {
	for _, m := range r.Matches {
		if m.Value != "" {
			return r.Provider + ":" + m.MetaKey + ":" + m.Value
		}
	}
	return r.Provider + ":" + r.EventID
}

// ToMap converts the request to a job payload
func (r PayoutRequest) ToMap() map[string]interface{} {
	m, _ := toPayload(r)
	return m
}

// PayoutRequestFromMap decodes a job payload
func PayoutRequestFromMap(data map[string]interface{}) (*PayoutRequest, error) {
	var req PayoutRequest
	if err := fromPayload(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func fromPayload(data map[string]interface{}, out interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// StripePaymentRequest normalizes a payment_intent.succeeded event.
func StripePaymentRequest(event *stripe.Event) (ReconciliationRequest, error) {
	var pi stripe.PaymentIntent
	if err := decodeStripeObject(event, &pi); err != nil {
		return ReconciliationRequest{}, err
	}

	amount := pi.AmountReceived
	if amount == 0 {
		amount = pi.Amount
	}

	return ReconciliationRequest{
		Provider:       models.PaymentProviderStripe,
		EventID:        event.ID,
		MissionID:      strings.TrimSpace(pi.Metadata["mission_id"]),
		AmountCents:    amount,
		Currency:       strings.ToUpper(string(pi.Currency)),
		CorrelatingID:  pi.ID,
		CorrelationKey: models.MetaSourcePaymentIntent,
	}, nil
}

// StripePayoutRequest normalizes a payout.paid event.
func StripePayoutRequest(event *stripe.Event) (PayoutRequest, error) {
	var payout stripe.Payout
	if err := decodeStripeObject(event, &payout); err != nil {
		return PayoutRequest{}, err
	}

	return PayoutRequest{
		Provider: models.PaymentProviderStripe,
		EventID:  event.ID,
		Matches: []PayoutMatch{
			{MetaKey: models.MetaSourcePaymentIntent, Value: strings.TrimSpace(payout.Metadata["source_payment_intent"])},
		},
		Method: models.WalletMethodStripePayout,
		Meta: map[string]interface{}{
			models.MetaPayoutID:      payout.ID,
			models.MetaPayoutEventID: event.ID,
		},
	}, nil
}

func decodeStripeObject(event *stripe.Event, out interface{}) error {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return fmt.Errorf("stripe event %s has no data.object", event.ID)
	}
	if err := json.Unmarshal(event.Data.Raw, out); err != nil {
		return fmt.Errorf("decode stripe event %s object: %w", event.ID, err)
	}
	return nil
}

type payPalAmount struct {
	Value        json.RawMessage `json:"value"`
	CurrencyCode string          `json:"currency_code"`
}

type payPalCapture struct {
	ID       string       `json:"id"`
	CustomID string       `json:"custom_id"`
	Amount   payPalAmount `json:"amount"`
}

type payPalPayoutBatch struct {
	BatchHeader struct {
		PayoutBatchID     string `json:"payout_batch_id"`
		BatchStatus       string `json:"batch_status"`
		SenderBatchHeader struct {
			SenderBatchID string `json:"sender_batch_id"`
		} `json:"sender_batch_header"`
	} `json:"batch_header"`
}

// PayPalCaptureRequest normalizes a PAYMENT.CAPTURE.COMPLETED event.
func PayPalCaptureRequest(event *PayPalEvent) (ReconciliationRequest, error) {
	var capture payPalCapture
	if err := decodePayPalResource(event, &capture); err != nil {
		return ReconciliationRequest{}, err
	}
	amount, err := decimalToCents(capture.Amount.Value)
	if err != nil {
		return ReconciliationRequest{}, fmt.Errorf("paypal event %s: %w", event.ID, err)
	}

	return ReconciliationRequest{
		Provider:       models.PaymentProviderPayPal,
		EventID:        event.ID,
		MissionID:      strings.TrimSpace(capture.CustomID),
		AmountCents:    amount,
		Currency:       strings.ToUpper(strings.TrimSpace(capture.Amount.CurrencyCode)),
		CorrelatingID:  capture.ID,
		CorrelationKey: models.MetaSourceCaptureID,
	}, nil
}

// PayPalPayoutRequest normalizes a PAYMENT.PAYOUTSBATCH.SUCCESS event.
func PayPalPayoutRequest(event *PayPalEvent) (PayoutRequest, error) {
	var batch payPalPayoutBatch
	if err := decodePayPalResource(event, &batch); err != nil {
		return PayoutRequest{}, err
	}
	senderBatchID := strings.TrimSpace(batch.BatchHeader.SenderBatchHeader.SenderBatchID)
	payoutBatchID := strings.TrimSpace(batch.BatchHeader.PayoutBatchID)

	return PayoutRequest{
		Provider: models.PaymentProviderPayPal,
		EventID:  event.ID,
		Matches: []PayoutMatch{
			{MetaKey: models.MetaSenderBatchID, Value: senderBatchID},
			{MetaKey: models.MetaPayoutBatchID, Value: payoutBatchID},
		},
		Method: models.WalletMethodPayPalPayout,
		Meta: map[string]interface{}{
			models.MetaSenderBatchID: senderBatchID,
			models.MetaPayoutBatchID: payoutBatchID,
			models.MetaPayoutEventID: event.ID,
		},
	}, nil
}

func decodePayPalResource(event *PayPalEvent, out interface{}) error {
	if len(event.Resource) == 0 || string(event.Resource) == "null" {
		return fmt.Errorf("paypal event %s has no resource", event.ID)
	}
	if err := json.Unmarshal(event.Resource, out); err != nil {
		return fmt.Errorf("decode paypal event %s resource: %w", event.ID, err)
	}
	return nil
}

// decimalToCents converts a decimal amount given as JSON string or number to
// minor units. A missing amount is 0; anything unparseable is an error so no
// zero amount debit gets booked for it.
func decimalToCents(raw json.RawMessage) (int64, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("unparseable amount %q", s)
	}
	return int64(math.Round(value * 100)), nil
}
