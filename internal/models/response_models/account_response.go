package response_models

import "salon/internal/models/db_models"

type AccountLoginResponse struct {
	Token   string          `json:"token"`
	Account AccountResponse `json:"account"`
}

type AccountResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Balance string `json:"balance"`
}

func NewAccountResponse(a *db_models.Account) AccountResponse {
	return AccountResponse{
		ID:      a.ID.String(),
		Name:    a.Name,
		Email:   a.Email,
		Role:    a.Role,
		Balance: a.Balance.StringFixed(2),
	}
}
