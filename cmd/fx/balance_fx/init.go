package balance_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"salon/internal/config"
	"salon/internal/repositories"
	"salon/internal/services"
)

var Module = fx.Provide(
	provideTransactionRepo, providePaymentClaimRepo, provideBalanceService)

func provideTransactionRepo(db *gorm.DB) repositories.TransactionRepository {
	return repositories.NewTransactionRepository(db)
}

func providePaymentClaimRepo(db *gorm.DB) repositories.PaymentClaimRepository {
	return repositories.NewPaymentClaimRepository(db)
}

func provideBalanceService(
	db *gorm.DB,
	accountRepo repositories.AccountRepository,
	txnRepo repositories.TransactionRepository,
	claimRepo repositories.PaymentClaimRepository,
	gateway services.PaymentGateway,
	cfg *config.Config,
	log *zap.Logger,
) services.BalanceServiceInterface {
	return services.NewBalanceService(db, accountRepo, txnRepo, claimRepo, gateway, cfg.Ledger.Currency, log)
}
