package db_models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type GiftCardType string

const (
	GiftCardTypeBalance GiftCardType = "BALANCE"
	GiftCardTypeService GiftCardType = "SERVICE"
)

type GiftCardStatus string

const (
	GiftCardStatusActive    GiftCardStatus = "ACTIVE"
	GiftCardStatusRedeemed  GiftCardStatus = "REDEEMED"
	GiftCardStatusExpired   GiftCardStatus = "EXPIRED"
	GiftCardStatusCancelled GiftCardStatus = "CANCELLED"
)

type GiftCard struct {
	BaseModel
	CodeHash string          `gorm:"not null" json:"-"` // bcrypt; the plain code is never stored
	Type     GiftCardType    `gorm:"size:16;not null"`
	Amount   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency string          `gorm:"size:3;not null"`
	Status   GiftCardStatus  `gorm:"size:16;not null;index"`

	// SERVICE cards name the treatment they pay for.
	ServiceName string

	PurchaserName      string
	PurchaserEmail     string     `gorm:"index"`
	PurchaserAccountID *uuid.UUID `gorm:"type:uuid"`
	RecipientName      string
	RecipientEmail     string
	Message            string

	ExpiresAt        int64 `gorm:"not null;index"`
	RedeemedAt       *int64
	RedeemedByUserID *uuid.UUID `gorm:"type:uuid"`

	PaymentIntentID   string `gorm:"size:255;not null;uniqueIndex"`
	VerificationToken string `gorm:"size:64;not null;uniqueIndex" json:"-"`

	// Abuse controls live on the row so lockouts survive restarts.
	RedemptionAttempts      int `gorm:"not null;default:0"`
	LastRedemptionAttempt   *int64
	LastRedemptionIP        string
	VerificationAttempts    int `gorm:"not null;default:0"`
	LastVerificationAttempt *int64
	IsLocked                bool `gorm:"not null;default:false;index"`
	LockedAt                *int64
	LockedReason            string
}

func (g *GiftCard) IsExpiredAt(unix int64) bool {
	return g.ExpiresAt < unix
}
