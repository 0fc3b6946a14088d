package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/LinerHub/app/models"
)

// providerCredentialRepository implements the ProviderCredentialRepository interface
type providerCredentialRepository struct {
	db *gorm.DB
}

// NewProviderCredentialRepository creates a new provider credential repository instance
func NewProviderCredentialRepository(db *gorm.DB) ProviderCredentialRepository {
	return &providerCredentialRepository{db: db}
}

func (r *providerCredentialRepository) GetByProvider(provider string) (*models.PaymentProviderCredential, error) {
	var cred models.PaymentProviderCredential
	if err := r.db.Where("provider = ?", provider).First(&cred).Error; err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *providerCredentialRepository) Save(credential *models.PaymentProviderCredential) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{"credentials", "enabled", "admin_approved", "updated_at"}),
	}).Create(credential).Error
}

// providerHealthRepository implements the ProviderHealthRepository interface
type providerHealthRepository struct {
	db *gorm.DB
}

// NewProviderHealthRepository creates a new provider health repository instance
func NewProviderHealthRepository(db *gorm.DB) ProviderHealthRepository {
	return &providerHealthRepository{db: db}
}

// Upsert keeps one row per provider; on conflict only updateColumns are written
func (r *providerHealthRepository) Upsert(health *models.PaymentProviderHealth, updateColumns []string) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}},
		DoUpdates: clause.AssignmentColumns(updateColumns),
	}).Create(health).Error
}

func (r *providerHealthRepository) GetByProvider(provider string) (*models.PaymentProviderHealth, error) {
	var health models.PaymentProviderHealth
	if err := r.db.Where("provider = ?", provider).First(&health).Error; err != nil {
		return nil, err
	}
	return &health, nil
}

func (r *providerHealthRepository) List() ([]models.PaymentProviderHealth, error) {
	var records []models.PaymentProviderHealth
	err := r.db.Order("provider ASC").Find(&records).Error
	return records, err
}
