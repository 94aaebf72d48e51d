package db_models

import "github.com/google/uuid"

type PaymentPurpose string

const (
	PaymentPurposeTopUp    PaymentPurpose = "TOP_UP"
	PaymentPurposeGiftCard PaymentPurpose = "GIFT_CARD"
)

// PaymentClaim binds a gateway payment to the one thing it paid for. The
// primary key makes a payment spendable exactly once across top-ups and
// gift card purchases.
type PaymentClaim struct {
	PaymentID string         `gorm:"primaryKey;size:255"`
	Purpose   PaymentPurpose `gorm:"size:16;not null"`
	UserID    *uuid.UUID     `gorm:"type:uuid"`
	CreatedAt int64          `gorm:"not null"`
}
