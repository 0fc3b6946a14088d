package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Setting represents a system setting
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:setting_key;size:255;not null;uniqueIndex" json:"key" validate:"required,min=1,max=255"`
	Value     string    `gorm:"type:text" json:"value"`
	Type      string    `gorm:"size:50;not null" json:"type" validate:"required"` // string, boolean, integer, float
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppSettings represents the runtime knobs of the payment workers
type AppSettings struct {
	JobQueueWorkerCount        int `json:"job_queue_worker_count" validate:"min=1,max=50"`
	PayoutSweepIntervalMinutes int `json:"payout_sweep_interval_minutes" validate:"min=1,max=1440"`
	PayoutOrphanMaxAgeHours    int `json:"payout_orphan_max_age_hours" validate:"min=1,max=720"`
	PayPalVerifyTimeoutSeconds int `json:"paypal_verify_timeout_seconds" validate:"min=1,max=60"`
	mu                         sync.RWMutex
}

// Global settings instance
var (
	appSettings *AppSettings
	settingsMu  sync.RWMutex
)

// DefaultAppSettings returns the settings used when nothing is stored.
func DefaultAppSettings() *AppSettings {
	return &AppSettings{
		JobQueueWorkerCount:        5,
		PayoutSweepIntervalMinutes: 15,
		PayoutOrphanMaxAgeHours:    72,
		PayPalVerifyTimeoutSeconds: 10,
	}
}

// GetAppSettings returns the current application settings
func GetAppSettings() *AppSettings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return appSettings
}

// LoadSettings loads settings from database into memory
func LoadSettings(db *gorm.DB) error {
	settingsMu.Lock()
	defer settingsMu.Unlock()

	loaded := DefaultAppSettings()

	var settings []Setting
	if err := db.Find(&settings).Error; err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	for _, setting := range settings {
		n, err := strconv.Atoi(setting.Value)
		if err != nil {
			continue
		}
		switch setting.Key {
		case "job_queue_worker_count":
			loaded.JobQueueWorkerCount = n
		case "payout_sweep_interval_minutes":
			loaded.PayoutSweepIntervalMinutes = n
		case "payout_orphan_max_age_hours":
			loaded.PayoutOrphanMaxAgeHours = n
		case "paypal_verify_timeout_seconds":
			loaded.PayPalVerifyTimeoutSeconds = n
		}
	}

	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid stored settings: %w", err)
	}
	appSettings = loaded
	return nil
}

// Validate validates the settings
func (s *AppSettings) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}

// ToJSON converts settings to JSON
func (s *AppSettings) ToJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(s)
}

// GetJobQueueWorkerCount returns the number of queue workers
func (s *AppSettings) GetJobQueueWorkerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.JobQueueWorkerCount
}

// GetPayoutSweepInterval returns how often orphaned payouts are retried
func (s *AppSettings) GetPayoutSweepInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.PayoutSweepIntervalMinutes) * time.Minute
}

// GetPayoutOrphanMaxAge returns how long orphaned payouts are kept
func (s *AppSettings) GetPayoutOrphanMaxAge() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.PayoutOrphanMaxAgeHours) * time.Hour
}

// GetPayPalVerifyTimeout returns the bound for the remote signature check
func (s *AppSettings) GetPayPalVerifyTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.PayPalVerifyTimeoutSeconds) * time.Second
}
