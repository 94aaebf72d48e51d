package db_models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxnTypeCredit           TransactionType = "CREDIT"
	TxnTypeDebit            TransactionType = "DEBIT"
	TxnTypeRefund           TransactionType = "REFUND"
	TxnTypeGiftCardRedeem   TransactionType = "GIFT_CARD_REDEEM"
	TxnTypeGiftCardPurchase TransactionType = "GIFT_CARD_PURCHASE"
)

// Effect is the sign a transaction of this type applies to the balance.
// GIFT_CARD_PURCHASE is paid through the gateway, so it is a memo entry.
func (t TransactionType) Effect() int {
	switch t {
	case TxnTypeCredit, TxnTypeRefund, TxnTypeGiftCardRedeem:
		return 1
	case TxnTypeDebit:
		return -1
	default:
		return 0
	}
}

func (t TransactionType) Valid() bool {
	switch t {
	case TxnTypeCredit, TxnTypeDebit, TxnTypeRefund, TxnTypeGiftCardRedeem, TxnTypeGiftCardPurchase:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TxnStatusPending   TransactionStatus = "PENDING"
	TxnStatusCompleted TransactionStatus = "COMPLETED"
	TxnStatusFailed    TransactionStatus = "FAILED"
	TxnStatusCancelled TransactionStatus = "CANCELLED"
)

// Transaction is an append-only ledger entry. Rows are inserted COMPLETED
// together with the balance update and never modified afterwards.
type Transaction struct {
	BaseModel
	UserID        uuid.UUID         `gorm:"type:uuid;not null;index;uniqueIndex:idx_transactions_user_seq,priority:1"`
	Seq           int64             `gorm:"not null;uniqueIndex:idx_transactions_user_seq,priority:2"`
	Type          TransactionType   `gorm:"size:32;not null;index"`
	Amount        decimal.Decimal   `gorm:"type:decimal(12,2);not null"`
	BalanceBefore decimal.Decimal   `gorm:"type:decimal(12,2);not null"`
	BalanceAfter  decimal.Decimal   `gorm:"type:decimal(12,2);not null"`
	Status        TransactionStatus `gorm:"size:16;not null;index"`

	// External idempotency key (payment intent id, gift card id, order id).
	ReferenceID *string `gorm:"size:255;uniqueIndex:idx_transactions_reference_completed,where:status = 'COMPLETED'"`

	Description string
	AdminID     *uuid.UUID `gorm:"type:uuid"`
	Notes       string
}
