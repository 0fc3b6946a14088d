package repository

import (
	"gorm.io/gorm"

	"github.com/ManuelReschke/LinerHub/app/models"
)

// MissionRepository defines the mission operations reconciliation needs
type MissionRepository interface {
	GetByID(id string) (*models.Mission, error)
	GetByIDForUpdate(id string) (*models.Mission, error)
	UpdatePaymentFields(mission *models.Mission) error
}

// WalletTransactionRepository defines the interface for ledger operations
type WalletTransactionRepository interface {
	GetByIdempotencyKey(userID uint, provider, txType, key string) (*models.WalletTransaction, error)
	// Upsert inserts tx or, when the idempotency tuple already exists, updates only
	// updateColumns on the stored row. It returns the stored row and whether it was inserted.
	Upsert(tx *models.WalletTransaction, updateColumns []string) (*models.WalletTransaction, bool, error)
	FindByMetaForUpdate(provider, txType, metaKey, value string) (*models.WalletTransaction, error)
	Update(tx *models.WalletTransaction) error
	ListByUserID(userID uint) ([]models.WalletTransaction, error)
	Count() (int64, error)
}

// ProviderCredentialRepository defines the interface for provider credentials
type ProviderCredentialRepository interface {
	GetByProvider(provider string) (*models.PaymentProviderCredential, error)
	Save(credential *models.PaymentProviderCredential) error
}

// ProviderHealthRepository defines the interface for provider health records
type ProviderHealthRepository interface {
	Upsert(health *models.PaymentProviderHealth, updateColumns []string) error
	GetByProvider(provider string) (*models.PaymentProviderHealth, error)
	List() ([]models.PaymentProviderHealth, error)
}

// NotificationRepository defines the interface for user notifications
type NotificationRepository interface {
	Create(userID uint, title, content, category string) error
	ListByUserID(userID uint) ([]models.Notification, error)
}

// SettingRepository defines the interface for application settings
type SettingRepository interface {
	Get() (*models.AppSettings, error)
}

// PayoutOrphanRepository tracks payout events that arrived before their credit existed
type PayoutOrphanRepository interface {
	Add(orphan models.PayoutOrphan) error
	Remove(key string) error
	List() ([]models.PayoutOrphan, error)
	Count() (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Mission            MissionRepository
	WalletTransaction  WalletTransactionRepository
	ProviderCredential ProviderCredentialRepository
	ProviderHealth     ProviderHealthRepository
	Notification       NotificationRepository
	Setting            SettingRepository
	PayoutOrphan       PayoutOrphanRepository
}

// NewRepositories creates a new instance of all repositories. Passing a
// transaction handle scopes every database repository to that transaction.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Mission:            NewMissionRepository(db),
		WalletTransaction:  NewWalletTransactionRepository(db),
		ProviderCredential: NewProviderCredentialRepository(db),
		ProviderHealth:     NewProviderHealthRepository(db),
		Notification:       NewNotificationRepository(db),
		Setting:            NewSettingRepository(db),
		PayoutOrphan:       NewPayoutOrphanRepository(),
	}
}
