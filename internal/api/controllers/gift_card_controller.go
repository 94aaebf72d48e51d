package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"salon/internal/models/request_models"
	"salon/internal/models/response_models"
	"salon/internal/services"
	"salon/pkg/utils"
)

type GiftCardController struct {
	giftCardService services.GiftCardServiceInterface
}

func NewGiftCardController(giftCardService services.GiftCardServiceInterface) *GiftCardController {
	return &GiftCardController{
		giftCardService: giftCardService,
	}
}

// Purchase godoc
// @Summary Issue a gift card for a confirmed Stripe payment
// @Description The code is delivered by email only; it is never part of the response
// @Tags GiftCards
// @Accept json
// @Produce json
// @Param request body request_models.PurchaseGiftCardRequest true "Gift card purchase"
// @Success 201 {object} utils.APIResponse
// @Failure 402 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Failure 422 {object} utils.APIResponse
// @Router /gift-cards/purchase [post]
func (g *GiftCardController) Purchase(c *gin.Context) {
	var req request_models.PurchaseGiftCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	result, err := g.giftCardService.Purchase(c.Request.Context(), req, req.PaymentIntentID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondStatus(c, http.StatusCreated, response_models.NewGiftCardResponse(result.Card), "Gift card issued")
}

// Redeem godoc
// @Summary Redeem a balance gift card into the signed-in account
// @Tags GiftCards
// @Accept json
// @Produce json
// @Param request body request_models.RedeemGiftCardRequest true "Gift card code"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 410 {object} utils.APIResponse
// @Failure 423 {object} utils.APIResponse
// @Failure 429 {object} utils.APIResponse
// @Security BearerAuth
// @Router /gift-cards/redeem [post]
func (g *GiftCardController) Redeem(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	var req request_models.RedeemGiftCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.HandleServiceError(c, utils.ErrInvalidCode)
		return
	}

	txn, err := g.giftCardService.Redeem(c.Request.Context(), req.Code, userID, c.ClientIP())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.NewTransactionResponse(txn), "Gift card redeemed")
}

// AdminVerify godoc
// @Summary Look up a gift card by its verification token
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body request_models.VerifyGiftCardRequest true "Verification token"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /admin/gift-cards/verify [post]
func (g *GiftCardController) AdminVerify(c *gin.Context) {
	var req request_models.VerifyGiftCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	card, err := g.giftCardService.VerifyForAdmin(c.Request.Context(), req.VerificationToken)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.NewAdminGiftCardResponse(card), "Gift card verified")
}

// AdminMarkUsed godoc
// @Summary Mark a service gift card as used
// @Tags Admin
// @Produce json
// @Param id path string true "Gift card id"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /admin/gift-cards/{id}/mark-used [post]
func (g *GiftCardController) AdminMarkUsed(c *gin.Context) {
	adminID, err := currentUserID(c)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	cardID, ok := pathUUID(c, "id")
	if !ok {
		utils.HandleServiceError(c, utils.ErrGiftCardNotFound)
		return
	}

	card, err := g.giftCardService.MarkServiceCardUsed(c.Request.Context(), cardID, adminID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.NewAdminGiftCardResponse(card), "Gift card marked as used")
}

// AdminExpire runs the expiry sweep on demand; the scheduler runs the same sweep.
func (g *GiftCardController) AdminExpire(c *gin.Context) {
	n, err := g.giftCardService.ExpireDue(c.Request.Context(), time.Now())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, gin.H{"expired": n}, "Expiry sweep finished")
}

func (g *GiftCardController) AdminGet(c *gin.Context) {
	cardID, ok := pathUUID(c, "id")
	if !ok {
		utils.HandleServiceError(c, utils.ErrGiftCardNotFound)
		return
	}

	card, err := g.giftCardService.GetByID(c.Request.Context(), cardID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.NewAdminGiftCardResponse(card), "Gift card fetched successfully")
}
