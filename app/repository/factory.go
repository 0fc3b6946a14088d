package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// DB returns the handle the factory was built with
func (f *Factory) DB() *gorm.DB {
	return f.db
}

// GetMissionRepository returns the mission repository instance
func (f *Factory) GetMissionRepository() MissionRepository {
	return f.GetRepositories().Mission
}

// GetWalletTransactionRepository returns the wallet transaction repository instance
func (f *Factory) GetWalletTransactionRepository() WalletTransactionRepository {
	return f.GetRepositories().WalletTransaction
}

// GetProviderCredentialRepository returns the provider credential repository instance
func (f *Factory) GetProviderCredentialRepository() ProviderCredentialRepository {
	return f.GetRepositories().ProviderCredential
}

// GetProviderHealthRepository returns the provider health repository instance
func (f *Factory) GetProviderHealthRepository() ProviderHealthRepository {
	return f.GetRepositories().ProviderHealth
}

// GetNotificationRepository returns the notification repository instance
func (f *Factory) GetNotificationRepository() NotificationRepository {
	return f.GetRepositories().Notification
}

// GetSettingRepository returns the setting repository instance
func (f *Factory) GetSettingRepository() SettingRepository {
	return f.GetRepositories().Setting
}

// GetPayoutOrphanRepository returns the payout orphan repository instance
func (f *Factory) GetPayoutOrphanRepository() PayoutOrphanRepository {
	return f.GetRepositories().PayoutOrphan
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}

// GetGlobalRepositories returns the global repositories instance
func GetGlobalRepositories() *Repositories {
	return GetGlobalFactory().GetRepositories()
}
