package repositories

import (
	"context"

	"gorm.io/gorm"
	"salon/internal/infra"
	dbm "salon/internal/models/db_models"
)

type PaymentClaimRepository interface {
	// Claim inserts the claim. A payment that is already claimed fails with
	// gorm.ErrDuplicatedKey.
	Claim(ctx context.Context, claim *dbm.PaymentClaim) error
	FindByPaymentID(ctx context.Context, paymentID string) (*dbm.PaymentClaim, error)
}

type paymentClaimRepository struct {
	db *gorm.DB
}

func NewPaymentClaimRepository(db *gorm.DB) PaymentClaimRepository {
	return &paymentClaimRepository{db: db}
}

func (r *paymentClaimRepository) Claim(ctx context.Context, claim *dbm.PaymentClaim) error {
	return infra.Conn(ctx, r.db).Create(claim).Error
}

func (r *paymentClaimRepository) FindByPaymentID(ctx context.Context, paymentID string) (*dbm.PaymentClaim, error) {
	var claim dbm.PaymentClaim
	err := infra.Conn(ctx, r.db).Where("payment_id = ?", paymentID).First(&claim).Error
	return orNil(&claim, err)
}
