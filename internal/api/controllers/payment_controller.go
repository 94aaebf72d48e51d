package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
	"salon/internal/services"
	"salon/pkg/utils"
)

const maxWebhookBody = 64 << 10

type PaymentController struct {
	giftCardService services.GiftCardServiceInterface
	webhookSecret   string
	log             *zap.Logger
}

func NewPaymentController(giftCardService services.GiftCardServiceInterface, webhookSecret string, log *zap.Logger) *PaymentController {
	return &PaymentController{
		giftCardService: giftCardService,
		webhookSecret:   webhookSecret,
		log:             log,
	}
}

// eventObject holds the fields we need from payment_intent and charge/dispute objects.
type eventObject struct {
	ID            string `json:"id"`
	PaymentIntent string `json:"payment_intent"`
}

// HandleWebhook godoc
// @Summary Stripe webhook
// @Description Cancels gift cards whose payment failed, was refunded or disputed
// @Tags Payments
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Router /payments/stripe/webhook [post]
func (p *PaymentController) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.RespondError(c, http.StatusRequestEntityTooLarge, "Payload too large")
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		p.log.Warn("rejected stripe webhook", zap.Error(err))
		utils.RespondError(c, http.StatusBadRequest, "Invalid signature")
		return
	}

	var obj eventObject
	if event.Data != nil {
		if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
			utils.RespondError(c, http.StatusBadRequest, "Invalid event payload")
			return
		}
	}

	var paymentRef string
	switch event.Type {
	case stripe.EventTypePaymentIntentPaymentFailed, stripe.EventTypePaymentIntentCanceled:
		paymentRef = obj.ID
	case stripe.EventTypeChargeRefunded, stripe.EventTypeChargeDisputeCreated:
		paymentRef = obj.PaymentIntent
	default:
		utils.RespondSuccess(c, nil, "Event ignored")
		return
	}

	if paymentRef == "" {
		utils.RespondSuccess(c, nil, "Event ignored")
		return
	}

	n, err := p.giftCardService.CancelForFailedPayment(c.Request.Context(), paymentRef)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	p.log.Info("processed stripe webhook",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("payment_ref", paymentRef),
		zap.Int("cancelled", n))
	utils.RespondSuccess(c, gin.H{"cancelled": n}, "Event processed")
}
