package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	PaymentProviderStripe    = "stripe"
	PaymentProviderPayPal    = "paypal"
	PaymentProviderAdyen     = "adyen"
	PaymentProviderApplePay  = "apple_pay"
	PaymentProviderGooglePay = "google_pay"

	ProviderHealthHealthy = "healthy"
	ProviderHealthError   = "error"
	ProviderHealthUnknown = "unknown"
)

// PaymentProviderCredential holds the admin managed credential blob for a
// payment provider. Approval is handled by the admin workflow.
type PaymentProviderCredential struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	Provider      string            `gorm:"type:varchar(20);not null;uniqueIndex" json:"provider" validate:"oneof=stripe paypal adyen apple_pay google_pay"`
	Credentials   datatypes.JSONMap `gorm:"type:json" json:"-"`
	Enabled       bool              `gorm:"default:false" json:"enabled"`
	AdminApproved bool              `gorm:"default:false" json:"admin_approved"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsLive reports whether the provider may be used by the rest of the platform.
// Webhook verification does not depend on it.
func (c *PaymentProviderCredential) IsLive() bool {
	return c.Enabled && c.AdminApproved
}

// CredentialString returns a credential value as string, or "" if absent.
func (c *PaymentProviderCredential) CredentialString(key string) string {
	if c.Credentials == nil {
		return ""
	}
	if v, ok := c.Credentials[key].(string); ok {
		return v
	}
	return ""
}

// PaymentProviderHealth is the last known webhook health of a provider.
type PaymentProviderHealth struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Provider          string     `gorm:"type:varchar(20);not null;uniqueIndex" json:"provider"`
	Status            string     `gorm:"type:varchar(20);not null;default:'unknown'" json:"status"`
	LastWebhookAt     *time.Time `gorm:"type:timestamp;default:null" json:"last_webhook_at,omitempty"`
	LastFailureAt     *time.Time `gorm:"type:timestamp;default:null" json:"last_failure_at,omitempty"`
	LastStatusMessage string     `gorm:"type:text" json:"last_status_message"`
	AcceptedCount     int64      `gorm:"not null;default:0" json:"accepted_count"`
	RejectedCount     int64      `gorm:"not null;default:0" json:"rejected_count"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PaymentProviderHealth) TableName() string {
	return "payment_provider_health"
}
