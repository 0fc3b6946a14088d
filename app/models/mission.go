package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	MissionStatusPublished  = "published"
	MissionStatusAccepted   = "accepted"
	MissionStatusInProgress = "in_progress"
	MissionStatusCompleted  = "completed"
	MissionStatusCancelled  = "cancelled"

	MissionProgressPending   = "pending"
	MissionProgressCancelled = "cancelled"

	MissionPaymentPending    = "pending"
	MissionPaymentAuthorized = "authorized"
	MissionPaymentCaptured   = "captured"
	MissionPaymentCancelled  = "cancelled"
)

// Mission is the unit of work between a client and a liner. Only the payment
// relevant fields are owned by this service; the rest of the lifecycle is
// managed elsewhere.
type Mission struct {
	ID             string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Title          string    `gorm:"type:varchar(255);default:''" json:"title"`
	ClientID       uint      `gorm:"not null;index" json:"client_id"`
	LinerID        *uint     `gorm:"index" json:"liner_id,omitempty"`
	Currency       string    `gorm:"type:varchar(3);default:''" json:"currency"`
	Status         string    `gorm:"type:varchar(20);not null;default:'published';index" json:"status" validate:"oneof=published accepted in_progress completed cancelled"`
	ProgressStatus string    `gorm:"type:varchar(20);not null;default:'pending'" json:"progress_status"`
	PaymentStatus  string    `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status" validate:"oneof=pending authorized captured cancelled"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// HasLiner reports whether a liner has been assigned to the mission.
func (m *Mission) HasLiner() bool {
	return m.LinerID != nil && *m.LinerID != 0
}

// DisplayName returns the title or falls back to the id.
func (m *Mission) DisplayName() string {
	if m.Title != "" {
		return m.Title
	}
	return m.ID
}

// ApplyPaymentCaptured moves the mission into the state implied by a captured
// payment. It returns true when any field changed.
func (m *Mission) ApplyPaymentCaptured() bool {
	changed := false
	if m.PaymentStatus != MissionPaymentCaptured {
		m.PaymentStatus = MissionPaymentCaptured
		changed = true
	}
	if m.Status == MissionStatusPublished {
		m.Status = MissionStatusAccepted
		changed = true
	}
	// A successful payment means the mission is live, a stale cancelled flag is reset.
	if m.ProgressStatus == MissionProgressCancelled {
		m.ProgressStatus = MissionProgressPending
		changed = true
	}
	return changed
}

func FindMissionByID(db *gorm.DB, id string) (*Mission, error) {
	var m Mission
	if err := db.Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
