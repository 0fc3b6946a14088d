package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ManuelReschke/LinerHub/app/models"
)

// PayPal transmission headers required for signature verification.
const (
	HeaderPayPalTransmissionID   = "PayPal-Transmission-Id"
	HeaderPayPalTransmissionTime = "PayPal-Transmission-Time"
	HeaderPayPalTransmissionSig  = "PayPal-Transmission-Sig"
	HeaderPayPalCertURL          = "PayPal-Cert-Url"
	HeaderPayPalAuthAlgo         = "PayPal-Auth-Algo"

	payPalVerificationSuccess  = "SUCCESS"
	defaultPayPalVerifyTimeout = 10 * time.Second
)

var payPalRequiredHeaders = []string{
	HeaderPayPalTransmissionID,
	HeaderPayPalTransmissionTime,
	HeaderPayPalTransmissionSig,
	HeaderPayPalCertURL,
	HeaderPayPalAuthAlgo,
}

// PayPalEvent is a PayPal webhook event. Raw keeps the bytes as delivered.
type PayPalEvent struct {
	ID           string          `json:"id"`
	EventType    string          `json:"event_type"`
	ResourceType string          `json:"resource_type"`
	Resource     json.RawMessage `json:"resource"`
	Raw          json.RawMessage `json:"-"`
	Verified     bool            `json:"-"`
}

// Payload returns the full event as the generic map carried by queue jobs.
func (e *PayPalEvent) Payload() (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := json.Unmarshal(e.Raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ParsePayPalEvent decodes a PayPal event body, which must be a JSON object.
func ParsePayPalEvent(raw []byte) (*PayPalEvent, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		if err == nil {
			err = fmt.Errorf("event is not a JSON object")
		}
		return nil, errMalformedPayload(models.PaymentProviderPayPal, err)
	}
	var event PayPalEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, errMalformedPayload(models.PaymentProviderPayPal, err)
	}
	event.Raw = append(json.RawMessage(nil), raw...)
	return &event, nil
}

type verifyWebhookSignatureRequest struct {
	AuthAlgo         string `json:"auth_algo"`
	CertURL          string `json:"cert_url"`
	TransmissionID   string `json:"transmission_id"`
	TransmissionSig  string `json:"transmission_sig"`
	TransmissionTime string `json:"transmission_time"`
	WebhookID        string `json:"webhook_id"`
}

type verifyWebhookSignatureResponse struct {
	VerificationStatus string `json:"verification_status"`
}

// PayPalVerifier authenticates PayPal webhook deliveries through PayPal's
// verify-webhook-signature API.
type PayPalVerifier struct {
	config     ConfigProvider
	httpClient *http.Client
	timeout    func() time.Duration

	mu          sync.Mutex
	tokenKey    string
	tokenSource oauth2.TokenSource
}

// NewPayPalVerifier creates a verifier. The remote call is bounded by the
// paypal_verify_timeout_seconds setting.
func NewPayPalVerifier(config ConfigProvider) *PayPalVerifier {
	return &PayPalVerifier{
		config:     config,
		httpClient: &http.Client{Timeout: time.Minute},
		timeout: func() time.Duration {
			if s := models.GetAppSettings(); s != nil && s.GetPayPalVerifyTimeout() > 0 {
				return s.GetPayPalVerifyTimeout()
			}
			return defaultPayPalVerifyTimeout
		},
	}
}

// WithHTTPClient replaces the client used for token and verification calls.
func (v *PayPalVerifier) WithHTTPClient(client *http.Client) *PayPalVerifier {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.httpClient = client
	v.tokenSource = nil
	v.tokenKey = ""
	return v
}

// WithTimeout fixes the verification timeout.
func (v *PayPalVerifier) WithTimeout(d time.Duration) *PayPalVerifier {
	v.timeout = func() time.Duration { return d }
	return v
}

// Verify checks the transmission headers with PayPal and returns the event.
// Without client id, secret and webhook id the event is returned unverified.
func (v *PayPalVerifier) Verify(ctx context.Context, raw []byte, headers http.Header) (*PayPalEvent, error) {
	cfg, err := v.config.PayPal(ctx)
	if err != nil {
		return nil, err
	}

	event, err := ParsePayPalEvent(raw)
	if err != nil {
		return nil, err
	}

	if !cfg.CanVerify() {
		log.Warn("[PayPalWebhook] Client id, secret or webhook id missing, accepting event WITHOUT signature verification")
		return event, nil
	}

	for _, name := range payPalRequiredHeaders {
		if headers.Get(name) == "" {
			return nil, errMissingSignature(models.PaymentProviderPayPal, "missing "+name+" header")
		}
	}

	status, err := v.verifyRemote(ctx, cfg, raw, headers)
	if err != nil {
		return nil, errVerificationRequestFailed(models.PaymentProviderPayPal, err)
	}
	if status != payPalVerificationSuccess {
		return nil, errVerificationRejected(models.PaymentProviderPayPal, status)
	}

	event.Verified = true
	return event, nil
}

func (v *PayPalVerifier) verifyRemote(ctx context.Context, cfg PayPalConfig, raw []byte, headers http.Header) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout())
	defer cancel()

	token, err := v.token(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("access token: %w", err)
	}

	body, err := verifyRequestBody(verifyWebhookSignatureRequest{
		AuthAlgo:         headers.Get(HeaderPayPalAuthAlgo),
		CertURL:          headers.Get(HeaderPayPalCertURL),
		TransmissionID:   headers.Get(HeaderPayPalTransmissionID),
		TransmissionSig:  headers.Get(HeaderPayPalTransmissionSig),
		TransmissionTime: headers.Get(HeaderPayPalTransmissionTime),
		WebhookID:        cfg.WebhookID,
	}, raw)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.APIBase()+"/v1/notifications/verify-webhook-signature", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	token.SetAuthHeader(req)

	resp, err := v.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("verify-webhook-signature returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var result verifyWebhookSignatureResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode verification response: %w", err)
	}
	return result.VerificationStatus, nil
}

// verifyRequestBody appends the event bytes untouched; re-encoding could change what PayPal hashes.
func verifyRequestBody(fields verifyWebhookSignatureRequest, raw []byte) ([]byte, error) {
	head, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	body := make([]byte, 0, len(head)+len(raw)+20)
	body = append(body, head[:len(head)-1]...)
	body = append(body, `,"webhook_event":`...)
	body = append(body, bytes.TrimSpace(raw)...)
	body = append(body, '}')
	return body, nil
}

func (v *PayPalVerifier) client() *http.Client {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.httpClient
}

// token reuses one cached token source per credential set.
func (v *PayPalVerifier) token(ctx context.Context, cfg PayPalConfig) (*oauth2.Token, error) {
	key := cfg.APIBase() + "|" + cfg.ClientID + "|" + cfg.Secret

	v.mu.Lock()
	if v.tokenSource == nil || v.tokenKey != key {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.Secret,
			TokenURL:     cfg.APIBase() + "/v1/oauth2/token",
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		base := context.WithValue(context.Background(), oauth2.HTTPClient, v.httpClient)
		v.tokenSource = cc.TokenSource(base)
		v.tokenKey = key
	}
	ts := v.tokenSource
	v.mu.Unlock()

	type result struct {
		token *oauth2.Token
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		tok, err := ts.Token()
		ch <- result{tok, err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.token, r.err
	}
}
