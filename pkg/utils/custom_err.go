package utils

import "errors"

var (
	ErrDatabaseError = errors.New("database error")

	// Accounts
	ErrAccountNotFound     = errors.New("account not found")
	ErrEmailAlreadyExists  = errors.New("email already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidPageSize     = errors.New("invalid page size parameter")
	ErrInvalidUserIdentity = errors.New("invalid user identity")

	// Ledger
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrAlreadyApplied      = errors.New("reference already applied")
	ErrOwnershipMismatch   = errors.New("payment belongs to another account")
	ErrPaymentNotSucceeded = errors.New("payment has not succeeded")
	ErrPaymentGateway      = errors.New("payment gateway unavailable")
	ErrInvalidTxnType      = errors.New("invalid transaction type")

	// Gift cards
	ErrPaymentReferenceRequired = errors.New("payment reference is required")
	ErrDuplicatePurchase        = errors.New("gift card already issued for this payment")
	ErrAmountMismatch           = errors.New("paid amount does not match gift card amount")
	ErrGiftCardNotFound         = errors.New("gift card not found")
	ErrInvalidCode              = errors.New("invalid gift card code")
	ErrNotActive                = errors.New("gift card is not active")
	ErrLocked                   = errors.New("gift card is locked")
	ErrExpired                  = errors.New("gift card has expired")
	ErrWrongCardType            = errors.New("operation not allowed for this gift card type")
)
