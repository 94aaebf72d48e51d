package request_models

type TopUpRequest struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
}
