package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper re-enables accounts whose temporary disable has run out.
type Sweeper interface {
	SweepExpiredDisables(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

func NewScheduler(spec string, sweeper Sweeper, log *slog.Logger) (*Scheduler, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { sweep(context.Background(), sweeper, log) }); err != nil {
		return nil, err
	}
	return &Scheduler{cron: c, log: log}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", slog.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for a running sweep to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop: timed out")
	}
}

func sweep(ctx context.Context, sweeper Sweeper, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := sweeper.SweepExpiredDisables(ctx)
	if err != nil {
		log.Error("disable sweep: database error", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		log.Info("disable sweep: accounts re-enabled", slog.Int64("count", n))
	}
}
