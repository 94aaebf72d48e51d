package response_models

import (
	"time"

	"github.com/shopspring/decimal"
	"salon/internal/models/db_models"
)

type BalanceResponse struct {
	UserID   string `json:"user_id"`
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
}

func NewBalanceResponse(userID string, balance decimal.Decimal, currency string) BalanceResponse {
	return BalanceResponse{UserID: userID, Balance: balance.StringFixed(2), Currency: currency}
}

type TransactionResponse struct {
	ID            string    `json:"id"`
	Seq           int64     `json:"seq"`
	Type          string    `json:"type"`
	Amount        string    `json:"amount"`
	BalanceBefore string    `json:"balance_before"`
	BalanceAfter  string    `json:"balance_after"`
	Status        string    `json:"status"`
	ReferenceID   string    `json:"reference_id,omitempty"`
	Description   string    `json:"description,omitempty"`
	AdminID       string    `json:"admin_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewTransactionResponse(t *db_models.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:            t.ID.String(),
		Seq:           t.Seq,
		Type:          string(t.Type),
		Amount:        t.Amount.StringFixed(2),
		BalanceBefore: t.BalanceBefore.StringFixed(2),
		BalanceAfter:  t.BalanceAfter.StringFixed(2),
		Status:        string(t.Status),
		Description:   t.Description,
		CreatedAt:     time.Unix(t.CreatedAt, 0).UTC(),
	}
	if t.ReferenceID != nil {
		resp.ReferenceID = *t.ReferenceID
	}
	if t.AdminID != nil {
		resp.AdminID = t.AdminID.String()
	}
	return resp
}

type HistoryResponse struct {
	Items []TransactionResponse `json:"items"`
	// NextBeforeSeq continues the listing; zero when this page is the last.
	NextBeforeSeq int64 `json:"next_before_seq,omitempty"`
}

func NewHistoryResponse(txns []db_models.Transaction, limit int) HistoryResponse {
	resp := HistoryResponse{Items: make([]TransactionResponse, 0, len(txns))}
	for i := range txns {
		resp.Items = append(resp.Items, NewTransactionResponse(&txns[i]))
	}
	if len(txns) > 0 && len(txns) == limit {
		resp.NextBeforeSeq = txns[len(txns)-1].Seq
	}
	return resp
}
