package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func traceID(c *gin.Context) string {
	return c.GetString("trace_id")
}

func RespondSuccess(c *gin.Context, data interface{}, message string) {
	RespondStatus(c, http.StatusOK, data, message)
}

func RespondStatus(c *gin.Context, code int, data interface{}, message string) {
	c.JSON(code, APIResponse{
		Status:  "success",
		Code:    code,
		Message: message,
		TraceID: traceID(c),
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, message string) {
	c.JSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		TraceID: traceID(c),
	})
}

// redeemRejected is shared by InvalidCode and NotActive so a client cannot
// tell an unknown code from a consumed one.
const redeemRejected = "This gift card code cannot be redeemed"

var serviceErrors = []struct {
	err     error
	code    int
	message string
}{
	{ErrInvalidAmount, http.StatusBadRequest, "Amount must be greater than zero"},
	{ErrInvalidTxnType, http.StatusBadRequest, "Invalid transaction type"},
	{ErrInvalidPageSize, http.StatusBadRequest, "Page size must be between 1 and 100"},
	{ErrPaymentReferenceRequired, http.StatusBadRequest, "Payment reference is required"},
	{ErrInvalidUserIdentity, http.StatusUnauthorized, "Invalid user identity"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
	{ErrAccountNotFound, http.StatusNotFound, "Account not found"},
	{ErrGiftCardNotFound, http.StatusNotFound, "Gift card not found"},
	{ErrEmailAlreadyExists, http.StatusConflict, "Email already registered"},
	{ErrInsufficientFunds, http.StatusUnprocessableEntity, "Insufficient balance"},
	{ErrAmountMismatch, http.StatusUnprocessableEntity, "Paid amount does not match the gift card amount"},
	{ErrWrongCardType, http.StatusUnprocessableEntity, "This operation is not available for this gift card"},
	{ErrPaymentNotSucceeded, http.StatusPaymentRequired, "Payment has not been completed"},
	{ErrOwnershipMismatch, http.StatusForbidden, "Payment does not belong to this account"},
	{ErrAlreadyApplied, http.StatusConflict, "Already applied"},
	{ErrDuplicatePurchase, http.StatusConflict, "A gift card was already issued for this payment"},
	{ErrInvalidCode, http.StatusBadRequest, redeemRejected},
	{ErrNotActive, http.StatusBadRequest, redeemRejected},
	{ErrLocked, http.StatusLocked, "This gift card is locked, please contact the salon"},
	{ErrExpired, http.StatusGone, "This gift card has expired"},
	{ErrPaymentGateway, http.StatusBadGateway, "Payment provider unavailable, please retry"},
}

// HTTPStatusFor returns the response code and client message for a service error.
func HTTPStatusFor(err error) (int, string) {
	for _, e := range serviceErrors {
		if errors.Is(err, e.err) {
			return e.code, e.message
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}

// IsServiceError reports whether err already carries a sentinel from this
// package, so callers can pass it through instead of wrapping it again.
func IsServiceError(err error) bool {
	if errors.Is(err, ErrDatabaseError) {
		return true
	}
	for _, e := range serviceErrors {
		if errors.Is(err, e.err) {
			return true
		}
	}
	return false
}

func HandleServiceError(c *gin.Context, err error) {
	code, message := HTTPStatusFor(err)
	if code >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	RespondError(c, code, message)
}
