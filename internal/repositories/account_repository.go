package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"salon/internal/infra"
	"salon/internal/models/db_models"
)

type AccountRepository interface {
	Insert(ctx context.Context, account *db_models.Account) error
	FindById(ctx context.Context, id uuid.UUID) (*db_models.Account, error)
	FindByEmail(ctx context.Context, email string) (*db_models.Account, error)

	// FindByIdForUpdate locks the account row until the surrounding
	// transaction ends.
	FindByIdForUpdate(ctx context.Context, id uuid.UUID) (*db_models.Account, error)

	// UpdateBalance writes the new balance only if the ledger version is
	// still expectedVersion, and reports whether the row was updated.
	UpdateBalance(ctx context.Context, id uuid.UUID, expectedVersion int64, balance decimal.Decimal, at int64) (bool, error)
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{
		db: db,
	}
}

func (a *accountRepository) Insert(ctx context.Context, account *db_models.Account) error {
	return infra.Conn(ctx, a.db).Create(account).Error
}

func (a *accountRepository) FindById(ctx context.Context, id uuid.UUID) (*db_models.Account, error) {
	var account db_models.Account
	err := infra.Conn(ctx, a.db).First(&account, "id = ?", id).Error
	return orNil(&account, err)
}

func (a *accountRepository) FindByEmail(ctx context.Context, email string) (*db_models.Account, error) {
	var account db_models.Account
	err := infra.Conn(ctx, a.db).First(&account, "email = ?", email).Error
	return orNil(&account, err)
}

func (a *accountRepository) FindByIdForUpdate(ctx context.Context, id uuid.UUID) (*db_models.Account, error) {
	var account db_models.Account
	err := infra.Conn(ctx, a.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&account, "id = ?", id).Error
	return orNil(&account, err)
}

func (a *accountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, expectedVersion int64, balance decimal.Decimal, at int64) (bool, error) {
	res := infra.Conn(ctx, a.db).
		Model(&db_models.Account{}).
		Where("id = ? AND ledger_version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"balance":        balance,
			"ledger_version": expectedVersion + 1,
			"last_update":    at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// orNil maps gorm's not-found error to a nil record, the convention every
// repository in this package follows.
func orNil[T any](record *T, err error) (*T, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
