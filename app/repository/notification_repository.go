package repository

import (
	"gorm.io/gorm"

	"github.com/ManuelReschke/LinerHub/app/models"
)

// notificationRepository implements the NotificationRepository interface
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository instance
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(userID uint, title, content, category string) error {
	return models.CreateNotification(r.db, userID, title, content, category)
}

func (r *notificationRepository) ListByUserID(userID uint) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&notifications).Error
	return notifications, err
}
