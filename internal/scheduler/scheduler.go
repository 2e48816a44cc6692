package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const defaultSpec = "@every 1m"

// Evictor closes sessions that have been idle for too long.
type Evictor interface {
	EvictIdle(now time.Time) int
}

// Scheduler runs periodic housekeeping jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// New builds a scheduler that evicts idle sessions on spec, or every minute
// when spec is empty.
func New(evictor Evictor, spec string, logger *slog.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = defaultSpec
	}
	c := cron.New(cron.WithChain(
		cron.Recover(cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))),
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))

	s := &Scheduler{cron: c, logger: logger}
	if _, err := c.AddFunc(spec, func() { s.evict(evictor) }); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) evict(evictor Evictor) {
	if n := evictor.EvictIdle(time.Now()); n > 0 {
		s.logger.Info("idle sessions evicted", "count", n)
	}
}

// Start runs the jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop halts the scheduler and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}
