package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"salon/internal/models/request_models"
	"salon/internal/models/response_models"
	"salon/internal/services"
	"salon/pkg/utils"
)

type BalanceController struct {
	balanceService services.BalanceServiceInterface
	currency       string
}

func NewBalanceController(balanceService services.BalanceServiceInterface, currency string) *BalanceController {
	return &BalanceController{
		balanceService: balanceService,
		currency:       currency,
	}
}

// GetBalance godoc
// @Summary Current balance of the signed-in account
// @Tags Balance
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /balance [get]
func (b *BalanceController) GetBalance(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	balance, err := b.balanceService.GetBalance(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.NewBalanceResponse(userID.String(), balance, b.currency), "Balance fetched successfully")
}

// GetHistory godoc
// @Summary Ledger entries of the signed-in account, newest first
// @Tags Balance
// @Produce json
// @Param before_seq query int false "Continue below this sequence number"
// @Param limit query int false "Page size (1-100, default 20)"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /balance/history [get]
func (b *BalanceController) GetHistory(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	var req request_models.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.HandleServiceError(c, utils.ErrInvalidPageSize)
		return
	}

	query := services.HistoryQuery{BeforeSeq: req.BeforeSeq, Limit: req.Limit}
	txns, err := b.balanceService.GetHistory(c.Request.Context(), userID, query)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	limit := req.Limit
	if limit == 0 {
		limit = 20
	}
	utils.RespondSuccess(c, response_models.NewHistoryResponse(txns, limit), "History fetched successfully")
}

// TopUp godoc
// @Summary Credit a confirmed Stripe payment to the signed-in account
// @Description Idempotent: repeating a payment id answers 409 without crediting twice
// @Tags Balance
// @Accept json
// @Produce json
// @Param request body request_models.TopUpRequest true "Payment reference"
// @Success 201 {object} utils.APIResponse
// @Failure 402 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Security BearerAuth
// @Router /balance/top-up [post]
func (b *BalanceController) TopUp(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	var req request_models.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	txn, err := b.balanceService.CreditFromExternalPayment(c.Request.Context(), userID, req.PaymentIntentID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondStatus(c, http.StatusCreated, response_models.NewTransactionResponse(txn), "Balance topped up")
}

// AdminGetBalance godoc
// @Summary Balance of any account
// @Tags Admin
// @Produce json
// @Param userId path string true "Account id"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /admin/balance/{userId} [get]
func (b *BalanceController) AdminGetBalance(c *gin.Context) {
	userID, ok := pathUUID(c, "userId")
	if !ok {
		utils.RespondError(c, http.StatusBadRequest, "Invalid user id")
		return
	}

	balance, err := b.balanceService.GetBalance(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.NewBalanceResponse(userID.String(), balance, b.currency), "Balance fetched successfully")
}

// AdminAdjust godoc
// @Summary Manually credit (positive amount) or debit (negative amount) an account
// @Tags Admin
// @Accept json
// @Produce json
// @Param userId path string true "Account id"
// @Param request body request_models.AdminAdjustRequest true "Signed amount"
// @Success 201 {object} utils.APIResponse
// @Failure 422 {object} utils.APIResponse
// @Security BearerAuth
// @Router /admin/balance/{userId}/adjust [post]
func (b *BalanceController) AdminAdjust(c *gin.Context) {
	adminID, err := currentUserID(c)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	userID, ok := pathUUID(c, "userId")
	if !ok {
		utils.RespondError(c, http.StatusBadRequest, "Invalid user id")
		return
	}

	var req request_models.AdminAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	txn, err := b.balanceService.AdminAdjust(c.Request.Context(), userID, req.Amount, req.Description, adminID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondStatus(c, http.StatusCreated, response_models.NewTransactionResponse(txn), "Balance adjusted")
}
