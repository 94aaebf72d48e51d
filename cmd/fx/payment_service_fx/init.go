package payment_service_fx

import (
	"go.uber.org/fx"
	"salon/internal/config"
	"salon/internal/services"
)

var Module = fx.Provide(
	providePaymentGateway,
)

func providePaymentGateway(cfg *config.Config) (services.PaymentGateway, error) {
	return services.NewStripeGateway(services.StripeConfig{
		SecretKey: cfg.Stripe.SecretKey,
		APIBase:   cfg.Stripe.APIBase,
		Timeout:   cfg.Stripe.Timeout,
	})
}
