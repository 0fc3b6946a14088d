package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	NotificationCategoryPayment = "payment"
	NotificationCategoryPayout  = "payout"
	NotificationCategorySystem  = "system"
)

type Notification struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"index" json:"user_id"`
	Title     string         `gorm:"type:varchar(255)" json:"title"`
	Category  string         `gorm:"type:varchar(50);index" json:"category" validate:"oneof=payment payout system"`
	Content   string         `gorm:"type:text" json:"content"`
	IsRead    bool           `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// MarkAsRead marks the notification as read.
func (n *Notification) MarkAsRead(db *gorm.DB) error {
	n.IsRead = true
	return db.Model(n).Update("is_read", true).Error
}

// CreateNotification stores a new unread notification for a user.
func CreateNotification(db *gorm.DB, userID uint, title, content, category string) error {
	notification := Notification{
		UserID:   userID,
		Title:    title,
		Category: category,
		Content:  content,
		IsRead:   false,
	}

	return db.Create(&notification).Error
}
