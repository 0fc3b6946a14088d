package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/LinerHub/app/models"
	"github.com/ManuelReschke/LinerHub/app/repository"
	"github.com/ManuelReschke/LinerHub/internal/pkg/env"
)

const (
	PayPalModeSandbox = "sandbox"
	PayPalModeLive    = "live"

	payPalSandboxAPIBase = "https://api-m.sandbox.paypal.com"
	payPalLiveAPIBase    = "https://api-m.paypal.com"
)

// StripeConfig holds the Stripe credentials used for webhooks.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Live          bool
}

// PayPalConfig holds the PayPal REST credentials used for webhooks.
type PayPalConfig struct {
	ClientID  string
	Secret    string
	WebhookID string
	Mode      string `validate:"oneof=sandbox live"`
	// BaseURL overrides the mode derived API host.
	BaseURL string `validate:"omitempty,url"`
	Live    bool
}

// CanVerify reports whether remote signature verification is possible.
func (c PayPalConfig) CanVerify() bool {
	return c.ClientID != "" && c.Secret != "" && c.WebhookID != ""
}

// APIBase returns the REST host for the configured mode.
func (c PayPalConfig) APIBase() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	if c.Mode == PayPalModeLive {
		return payPalLiveAPIBase
	}
	return payPalSandboxAPIBase
}

// ConfigProvider supplies provider credentials at verification time.
type ConfigProvider interface {
	Stripe(ctx context.Context) (StripeConfig, error)
	PayPal(ctx context.Context) (PayPalConfig, error)
}

// StaticConfigProvider returns fixed values.
type StaticConfigProvider struct {
	StripeConfig StripeConfig
	PayPalConfig PayPalConfig
}

func (p StaticConfigProvider) Stripe(context.Context) (StripeConfig, error) {
	return p.StripeConfig, nil
}

func (p StaticConfigProvider) PayPal(context.Context) (PayPalConfig, error) {
	cfg := p.PayPalConfig
	if cfg.Mode == "" {
		cfg.Mode = PayPalModeSandbox
	}
	return cfg, nil
}

// SettingsConfigProvider reads the admin managed credential row of each provider
// and fills blank values from the environment.
type SettingsConfigProvider struct {
	credentials repository.ProviderCredentialRepository
	lookup      func(key, def string) string
	validate    *validator.Validate
}

// NewSettingsConfigProvider builds a provider over the credential repository and process env.
func NewSettingsConfigProvider(credentials repository.ProviderCredentialRepository) *SettingsConfigProvider {
	return &SettingsConfigProvider{
		credentials: credentials,
		lookup:      env.GetEnv,
		validate:    validator.New(),
	}
}

// WithLookup replaces the environment lookup.
func (p *SettingsConfigProvider) WithLookup(lookup func(key, def string) string) *SettingsConfigProvider {
	p.lookup = lookup
	return p
}

// credential returns nil without error only when no row exists. A failed read
// must not fall through to an env without secrets, which would disable
// signature verification.
func (p *SettingsConfigProvider) credential(provider string) (*models.PaymentProviderCredential, error) {
	if p.credentials == nil {
		return nil, nil
	}
	cred, err := p.credentials.GetByProvider(provider)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		log.Errorf("[PaymentConfig] Failed to load %s credentials: %v", provider, err)
		return nil, fmt.Errorf("load %s credentials: %w", provider, err)
	}
	return cred, nil
}

func (p *SettingsConfigProvider) value(cred *models.PaymentProviderCredential, key, envKey string) string {
	if cred != nil {
		if v := strings.TrimSpace(cred.CredentialString(key)); v != "" {
			return v
		}
	}
	return strings.TrimSpace(p.lookup(envKey, ""))
}

func (p *SettingsConfigProvider) Stripe(ctx context.Context) (StripeConfig, error) {
	cred, err := p.credential(models.PaymentProviderStripe)
	if err != nil {
		return StripeConfig{}, err
	}
	cfg := StripeConfig{
		SecretKey:     p.value(cred, "secret_key", "STRIPE_SECRET_KEY"),
		WebhookSecret: p.value(cred, "webhook_secret", "STRIPE_WEBHOOK_SECRET"),
	}
	if cred != nil {
		cfg.Live = cred.IsLive()
	}
	return cfg, nil
}

func (p *SettingsConfigProvider) PayPal(ctx context.Context) (PayPalConfig, error) {
	cred, err := p.credential(models.PaymentProviderPayPal)
	if err != nil {
		return PayPalConfig{}, err
	}
	cfg := PayPalConfig{
		ClientID:  p.value(cred, "client_id", "PAYPAL_CLIENT_ID"),
		Secret:    p.value(cred, "secret", "PAYPAL_SECRET"),
		WebhookID: p.value(cred, "webhook_id", "PAYPAL_WEBHOOK_ID"),
		Mode:      strings.ToLower(p.value(cred, "mode", "PAYPAL_MODE")),
		BaseURL:   p.value(cred, "base_url", "PAYPAL_API_BASE"),
	}
	if cfg.Mode == "" {
		cfg.Mode = PayPalModeSandbox
	}
	if cred != nil {
		cfg.Live = cred.IsLive()
	}
	if err := p.validate.Struct(cfg); err != nil {
		return PayPalConfig{}, fmt.Errorf("invalid paypal configuration: %w", err)
	}
	return cfg, nil
}
