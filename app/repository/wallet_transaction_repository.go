package repository

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/LinerHub/app/models"
)

// walletTransactionRepository implements the WalletTransactionRepository interface
type walletTransactionRepository struct {
	db *gorm.DB
}

// NewWalletTransactionRepository creates a new wallet transaction repository instance
func NewWalletTransactionRepository(db *gorm.DB) WalletTransactionRepository {
	return &walletTransactionRepository{db: db}
}

var idempotencyColumns = []clause.Column{
	{Name: "user_id"},
	{Name: "provider"},
	{Name: "type"},
	{Name: "idempotency_key"},
}

func (r *walletTransactionRepository) GetByIdempotencyKey(userID uint, provider, txType, key string) (*models.WalletTransaction, error) {
	var tx models.WalletTransaction
	err := r.db.Where("user_id = ? AND provider = ? AND type = ? AND idempotency_key = ?", userID, provider, txType, key).
		First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Upsert relies on the unique idempotency index, so concurrent deliveries of the
// same event cannot both insert. The inserted flag compares the generated id
// against the stored one.
func (r *walletTransactionRepository) Upsert(tx *models.WalletTransaction, updateColumns []string) (*models.WalletTransaction, bool, error) {
	onConflict := clause.OnConflict{Columns: idempotencyColumns}
	if len(updateColumns) == 0 {
		onConflict.DoNothing = true
	} else {
		onConflict.DoUpdates = clause.AssignmentColumns(updateColumns)
	}

	if err := r.db.Clauses(onConflict).Create(tx).Error; err != nil {
		return nil, false, err
	}

	stored, err := r.GetByIdempotencyKey(tx.UserID, tx.Provider, tx.Type, tx.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	return stored, stored.ID == tx.ID, nil
}

// FindByMetaForUpdate finds the oldest transaction whose meta[metaKey] equals value and locks it
func (r *walletTransactionRepository) FindByMetaForUpdate(provider, txType, metaKey, value string) (*models.WalletTransaction, error) {
	var tx models.WalletTransaction
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider = ? AND type = ?", provider, txType).
		Where(datatypes.JSONQuery("meta").Equals(value, metaKey)).
		Order("created_at ASC").
		First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *walletTransactionRepository) Update(tx *models.WalletTransaction) error {
	return r.db.Model(tx).Select("status", "method", "meta", "updated_at").Updates(tx).Error
}

func (r *walletTransactionRepository) ListByUserID(userID uint) ([]models.WalletTransaction, error) {
	var txs []models.WalletTransaction
	err := r.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&txs).Error
	return txs, err
}

func (r *walletTransactionRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.WalletTransaction{}).Count(&count).Error
	return count, err
}
