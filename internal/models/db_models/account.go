package db_models

import "github.com/shopspring/decimal"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Account struct {
	BaseModel
	Name         string
	Email        string `gorm:"unique"`
	Phone        string
	PasswordHash string
	Role         string `gorm:"size:16;default:user"`

	// Ledger-owned fields. Only the balance service writes them.
	Balance       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	LastUpdate    *int64
	LedgerVersion int64 `gorm:"not null;default:0"`
}

func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}
