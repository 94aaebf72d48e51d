package memcache_fx

import (
	"time"

	"go.uber.org/fx"
	"salon/internal/config"
	mem "salon/pkg/memcache"
)

const limiterTTL = 30 * time.Minute

var Module = fx.Provide(
	fx.Annotate(provideRedeemLimiters, fx.ResultTags(`name:"redeem"`)),
	fx.Annotate(provideVerifyLimiters, fx.ResultTags(`name:"verify"`)),
)

func provideRedeemLimiters(cfg *config.Config) *mem.Limiters {
	return mem.NewLimiters(cfg.RedeemRatePerMinute, limiterTTL)
}

func provideVerifyLimiters(cfg *config.Config) *mem.Limiters {
	return mem.NewLimiters(cfg.VerifyRatePerMinute, limiterTTL)
}
