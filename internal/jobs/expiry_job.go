package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"salon/internal/metrics"
)

type CardExpirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int, error)
	CountActive(ctx context.Context) (int64, error)
}

type Sweeper interface {
	Sweep() int
}

// ExpiryJob moves overdue gift cards to EXPIRED and drops idle rate limiters.
type ExpiryJob struct {
	cards    CardExpirer
	limiters []Sweeper
	log      *zap.Logger
	timeout  time.Duration
	now      func() time.Time
}

func NewExpiryJob(cards CardExpirer, log *zap.Logger, limiters ...Sweeper) *ExpiryJob {
	return &ExpiryJob{
		cards:    cards,
		limiters: limiters,
		log:      log.Named("expiry"),
		timeout:  5 * time.Minute,
		now:      time.Now,
	}
}

func (j *ExpiryJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	started := j.now()
	expired, err := j.cards.ExpireDue(ctx, started)
	if err != nil {
		return fmt.Errorf("expire due cards: %w", err)
	}

	active, err := j.cards.CountActive(ctx)
	if err != nil {
		return fmt.Errorf("count active cards: %w", err)
	}
	metrics.GiftCardsActive.Set(float64(active))

	dropped := 0
	for _, l := range j.limiters {
		dropped += l.Sweep()
	}

	j.log.Info("expiry sweep finished",
		zap.Int("expired", expired),
		zap.Int64("active", active),
		zap.Int("limiters_dropped", dropped),
		zap.Duration("took", j.now().Sub(started)))
	return nil
}

// Scheduler runs the expiry job on a cron schedule. Runs never overlap.
type Scheduler struct {
	cron *cron.Cron
	job  *ExpiryJob
	log  *zap.Logger
}

func NewScheduler(schedule string, job *ExpiryJob, log *zap.Logger) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	s := &Scheduler{cron: c, job: job, log: log.Named("scheduler")}

	if _, err := c.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	if err := s.job.Run(context.Background()); err != nil {
		s.log.Error("expiry sweep failed", zap.Error(err))
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("entries", len(s.cron.Entries())))
}

// Stop waits for a running sweep until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
