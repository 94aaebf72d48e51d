package controllers_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"salon/internal/api/controllers"
	"salon/internal/config"
	"salon/internal/services"
)

var Module = fx.Options(
	fx.Provide(controllers.NewAccountController),
	fx.Provide(controllers.NewGiftCardController),
	fx.Provide(provideBalanceController),
	fx.Provide(providePaymentController))

func provideBalanceController(balanceService services.BalanceServiceInterface, cfg *config.Config) *controllers.BalanceController {
	return controllers.NewBalanceController(balanceService, cfg.Ledger.Currency)
}

func providePaymentController(giftCardService services.GiftCardServiceInterface, cfg *config.Config, log *zap.Logger) *controllers.PaymentController {
	return controllers.NewPaymentController(giftCardService, cfg.Stripe.WebhookSecret, log)
}
