package response_models

import (
	"time"

	"salon/internal/models/db_models"
)

// GiftCardResponse never carries the code or the verification token.
type GiftCardResponse struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	Amount         string     `json:"amount"`
	Currency       string     `json:"currency"`
	Status         string     `json:"status"`
	ServiceName    string     `json:"service_name,omitempty"`
	PurchaserName  string     `json:"purchaser_name"`
	RecipientName  string     `json:"recipient_name,omitempty"`
	RecipientEmail string     `json:"recipient_email,omitempty"`
	Message        string     `json:"message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	RedeemedAt     *time.Time `json:"redeemed_at,omitempty"`
}

type AdminGiftCardResponse struct {
	GiftCardResponse
	PurchaserEmail       string `json:"purchaser_email"`
	PaymentIntentID      string `json:"payment_intent_id"`
	RedeemedByUserID     string `json:"redeemed_by_user_id,omitempty"`
	RedemptionAttempts   int    `json:"redemption_attempts"`
	VerificationAttempts int    `json:"verification_attempts"`
	IsLocked             bool   `json:"is_locked"`
	LockedReason         string `json:"locked_reason,omitempty"`
}

func unixPtr(v *int64) *time.Time {
	if v == nil {
		return nil
	}
	t := time.Unix(*v, 0).UTC()
	return &t
}

func NewGiftCardResponse(g *db_models.GiftCard) GiftCardResponse {
	return GiftCardResponse{
		ID:             g.ID.String(),
		Type:           string(g.Type),
		Amount:         g.Amount.StringFixed(2),
		Currency:       g.Currency,
		Status:         string(g.Status),
		ServiceName:    g.ServiceName,
		PurchaserName:  g.PurchaserName,
		RecipientName:  g.RecipientName,
		RecipientEmail: g.RecipientEmail,
		Message:        g.Message,
		CreatedAt:      time.Unix(g.CreatedAt, 0).UTC(),
		ExpiresAt:      time.Unix(g.ExpiresAt, 0).UTC(),
		RedeemedAt:     unixPtr(g.RedeemedAt),
	}
}

func NewAdminGiftCardResponse(g *db_models.GiftCard) AdminGiftCardResponse {
	resp := AdminGiftCardResponse{
		GiftCardResponse:     NewGiftCardResponse(g),
		PurchaserEmail:       g.PurchaserEmail,
		PaymentIntentID:      g.PaymentIntentID,
		RedemptionAttempts:   g.RedemptionAttempts,
		VerificationAttempts: g.VerificationAttempts,
		IsLocked:             g.IsLocked,
		LockedReason:         g.LockedReason,
	}
	if g.RedeemedByUserID != nil {
		resp.RedeemedByUserID = g.RedeemedByUserID.String()
	}
	return resp
}
