package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"salon/internal/infra"
	"salon/internal/models/db_models"
)

type TransactionRepository interface {
	Create(ctx context.Context, txn *db_models.Transaction) error
	FindCompletedByReference(ctx context.Context, referenceID string) (*db_models.Transaction, error)
	// ListByUser returns entries newest first. beforeSeq <= 0 starts at the newest.
	ListByUser(ctx context.Context, userID uuid.UUID, beforeSeq int64, limit int) ([]db_models.Transaction, error)
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, txn *db_models.Transaction) error {
	return infra.Conn(ctx, r.db).Create(txn).Error
}

func (r *transactionRepository) FindCompletedByReference(ctx context.Context, referenceID string) (*db_models.Transaction, error) {
	var txn db_models.Transaction
	err := infra.Conn(ctx, r.db).
		Where("reference_id = ? AND status = ?", referenceID, db_models.TxnStatusCompleted).
		First(&txn).Error
	return orNil(&txn, err)
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, beforeSeq int64, limit int) ([]db_models.Transaction, error) {
	var txns []db_models.Transaction
	q := infra.Conn(ctx, r.db).Where("user_id = ?", userID)
	if beforeSeq > 0 {
		q = q.Where("seq < ?", beforeSeq)
	}
	err := q.Order("seq DESC").Limit(limit).Find(&txns).Error
	return txns, err
}
