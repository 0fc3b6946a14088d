package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	WalletTxTypeCredit = "credit"
	WalletTxTypeDebit  = "debit"

	WalletTxStatusPending   = "pending"
	WalletTxStatusCompleted = "completed"
	WalletTxStatusCancelled = "cancelled"
)

// Keys used in WalletTransaction.Meta.
const (
	MetaProvider            = "provider"
	MetaExternalID          = "external_id"
	MetaSourcePaymentIntent = "source_payment_intent"
	MetaSourceCaptureID     = "source_capture_id"
	MetaMissionID           = "mission_id"
	MetaEventID             = "event_id"
	MetaPayoutBatchID       = "payout_batch_id"
	MetaSenderBatchID       = "sender_batch_id"
	MetaPayoutID            = "payout_id"
	MetaPayoutEventID       = "payout_event_id"
)

// Wallet transaction methods.
const (
	WalletMethodEscrow       = "escrow"
	WalletMethodStripePayout = "stripe_payout"
	WalletMethodPayPalPayout = "paypal_payout"
)

// WalletTransaction is an economic ledger entry. Amounts are always integer
// minor units. The tuple (user_id, provider, type, idempotency_key) is unique
// so duplicate webhook deliveries collapse onto one row.
type WalletTransaction struct {
	ID             string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID         uint              `gorm:"not null;index;index:ux_wallet_tx_idempotency,unique,priority:1" json:"user_id"`
	Provider       string            `gorm:"type:varchar(20);not null;default:'';index:ux_wallet_tx_idempotency,unique,priority:2" json:"provider"`
	Type           string            `gorm:"type:varchar(10);not null;index:ux_wallet_tx_idempotency,unique,priority:3" json:"type" validate:"oneof=credit debit"`
	IdempotencyKey string            `gorm:"type:varchar(191);not null;index:ux_wallet_tx_idempotency,unique,priority:4" json:"idempotency_key"`
	Status         string            `gorm:"type:varchar(20);not null;default:'pending';index" json:"status" validate:"oneof=pending completed cancelled"`
	AmountCents    int64             `gorm:"not null" json:"amount_cents"`
	Currency       string            `gorm:"type:varchar(3);not null" json:"currency"`
	Description    string            `gorm:"type:varchar(255);default:''" json:"description"`
	Counterparty   string            `gorm:"type:varchar(100);default:''" json:"counterparty"`
	Method         string            `gorm:"type:varchar(50);default:''" json:"method"`
	Meta           datatypes.JSONMap `gorm:"type:json" json:"meta"`
	CreatedAt      time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *WalletTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// MetaString returns a meta value as string, or "" if absent.
func (t *WalletTransaction) MetaString(key string) string {
	if t.Meta == nil {
		return ""
	}
	if v, ok := t.Meta[key].(string); ok {
		return v
	}
	return ""
}

// MergeMeta adds the given keys to Meta. Existing keys are kept as they are.
// It returns true if anything was added.
func (t *WalletTransaction) MergeMeta(values map[string]interface{}) bool {
	if t.Meta == nil {
		t.Meta = datatypes.JSONMap{}
	}
	added := false
	for k, v := range values {
		if v == nil || v == "" {
			continue
		}
		if _, exists := t.Meta[k]; exists {
			continue
		}
		t.Meta[k] = v
		added = true
	}
	return added
}
