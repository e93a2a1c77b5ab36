package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/longpham-dev/milktea-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payment transaction repository.
func NewRepository(db *gorm.DB) TransactionRepository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) TransactionRepository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Upsert records a settlement attempt. The (provider, txn_ref) key makes
// replayed callbacks land on the same row instead of duplicating it.
func (r *repository) Upsert(ctx context.Context, txn *models.PaymentTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "provider"}, {Name: "txn_ref"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"amount", "response_code", "status", "raw_payload", "updated_at",
			}),
		}).
		Create(txn).Error
}

// FindByOrder returns the latest settlement attempt recorded for an order.
func (r *repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("updated_at DESC").
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
