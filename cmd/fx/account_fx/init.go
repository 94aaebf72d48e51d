package account_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"salon/internal/config"
	"salon/internal/repositories"
	"salon/internal/services"
)

var Module = fx.Provide(
	provideAccountService, provideAccountRepo)

func provideAccountRepo(db *gorm.DB) repositories.AccountRepository {
	return repositories.NewAccountRepository(db)
}

func provideAccountService(accountRepo repositories.AccountRepository, cfg *config.Config, log *zap.Logger) services.AccountServiceInterface {
	return services.NewAccountService(accountRepo, cfg.JWTSecret, log)
}
