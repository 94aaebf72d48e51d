package config_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"salon/internal/config"
	"salon/internal/infra"
)

var Module = fx.Provide(
	config.Load, provideLogger)

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return infra.NewLogger(cfg.LogLevel)
}
