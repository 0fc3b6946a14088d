package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/LinerHub/app/models"
)

// missionRepository implements the MissionRepository interface
type missionRepository struct {
	db *gorm.DB
}

// NewMissionRepository creates a new mission repository instance
func NewMissionRepository(db *gorm.DB) MissionRepository {
	return &missionRepository{db: db}
}

func (r *missionRepository) GetByID(id string) (*models.Mission, error) {
	return models.FindMissionByID(r.db, id)
}

// GetByIDForUpdate reads the mission with a row lock held until the surrounding transaction ends
func (r *missionRepository) GetByIDForUpdate(id string) (*models.Mission, error) {
	return models.FindMissionByID(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

// UpdatePaymentFields writes only the fields reconciliation owns
func (r *missionRepository) UpdatePaymentFields(mission *models.Mission) error {
	return r.db.Model(mission).Updates(map[string]interface{}{
		"status":          mission.Status,
		"progress_status": mission.ProgressStatus,
		"payment_status":  mission.PaymentStatus,
	}).Error
}
