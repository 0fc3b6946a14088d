package repository

import (
	"gorm.io/gorm"

	"github.com/ManuelReschke/LinerHub/app/models"
)

// settingRepository implements the SettingRepository interface
type settingRepository struct {
	db *gorm.DB
}

// NewSettingRepository creates a new setting repository instance
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

// Get returns the in-memory settings and loads them from the settings table on first use
func (r *settingRepository) Get() (*models.AppSettings, error) {
	if s := models.GetAppSettings(); s != nil {
		return s, nil
	}
	if err := models.LoadSettings(r.db); err != nil {
		return nil, err
	}
	return models.GetAppSettings(), nil
}
