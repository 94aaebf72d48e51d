package giftcard_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"salon/internal/config"
	"salon/internal/repositories"
	"salon/internal/services"
)

var Module = fx.Provide(
	provideGiftCardRepo, provideGiftCardService)

func provideGiftCardRepo(db *gorm.DB) repositories.GiftCardRepository {
	return repositories.NewGiftCardRepository(db)
}

func provideGiftCardService(
	db *gorm.DB,
	cardRepo repositories.GiftCardRepository,
	accountRepo repositories.AccountRepository,
	claimRepo repositories.PaymentClaimRepository,
	ledger services.BalanceServiceInterface,
	gateway services.PaymentGateway,
	notify *services.NotificationFanout,
	cfg *config.Config,
	log *zap.Logger,
) services.GiftCardServiceInterface {
	return services.NewGiftCardService(db, cardRepo, accountRepo, claimRepo, ledger, gateway, notify, services.GiftCardConfig{
		Currency:                cfg.Ledger.Currency,
		ValidityMonths:          cfg.Cards.ValidityMonths,
		MaxRedemptionAttempts:   cfg.Cards.MaxRedemptionAttempts,
		MaxVerificationAttempts: cfg.Cards.MaxVerificationAttempts,
		LookupRetentionMonths:   cfg.Cards.LookupRetentionMonths,
		ScanWarnThreshold:       cfg.Cards.ScanWarnThreshold,
		BcryptCost:              cfg.Cards.BcryptCost,
	}, log)
}
