package scheduler_fx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"salon/internal/config"
	"salon/internal/jobs"
	"salon/internal/services"
	mem "salon/pkg/memcache"
)

type limiterParams struct {
	fx.In

	Redeem *mem.Limiters `name:"redeem"`
	Verify *mem.Limiters `name:"verify"`
}

var Module = fx.Options(
	fx.Provide(provideExpiryJob, provideScheduler),
	fx.Invoke(startScheduler),
)

func provideExpiryJob(cards services.GiftCardServiceInterface, limiters limiterParams, log *zap.Logger) *jobs.ExpiryJob {
	return jobs.NewExpiryJob(cards, log, limiters.Redeem, limiters.Verify)
}

func provideScheduler(cfg *config.Config, job *jobs.ExpiryJob, log *zap.Logger) (*jobs.Scheduler, error) {
	return jobs.NewScheduler(cfg.ExpireSweepSchedule, job, log)
}

func startScheduler(lc fx.Lifecycle, s *jobs.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Start()
			return nil
		},
		OnStop: s.Stop,
	})
}
