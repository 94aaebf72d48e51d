package request_models

import "github.com/shopspring/decimal"

type AdminAdjustRequest struct {
	Amount      decimal.Decimal `json:"amount"` // signed; negative debits the account
	Description string          `json:"description" binding:"required,max=255"`
}

type HistoryRequest struct {
	BeforeSeq int64 `form:"before_seq" binding:"omitempty,min=0"`
	Limit     int   `form:"limit" binding:"omitempty,min=1,max=100"`
}
