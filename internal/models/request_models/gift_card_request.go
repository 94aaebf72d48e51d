package request_models

import "github.com/shopspring/decimal"

type PurchaseGiftCardRequest struct {
	PaymentIntentID string          `json:"payment_intent_id"`
	Type            string          `json:"type" binding:"required,oneof=BALANCE SERVICE"`
	Amount          decimal.Decimal `json:"amount"`
	ServiceName     string          `json:"service_name" binding:"required_if=Type SERVICE,max=120"`

	PurchaserName  string `json:"purchaser_name" binding:"required,max=100"`
	PurchaserEmail string `json:"purchaser_email" binding:"required,email"`
	RecipientName  string `json:"recipient_name" binding:"omitempty,max=100"`
	RecipientEmail string `json:"recipient_email" binding:"omitempty,email"`
	Message        string `json:"message" binding:"omitempty,max=500"`
}

type RedeemGiftCardRequest struct {
	Code string `json:"code" binding:"required,min=16,max=32"`
}

type VerifyGiftCardRequest struct {
	VerificationToken string `json:"verification_token" binding:"required,len=64,hexadecimal"`
}
