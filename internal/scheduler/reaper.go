// Package scheduler runs the periodic sweep that expires turns nobody
// reported, e.g. when both players closed their tabs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Expirer applies overdue timeouts and reveal advances.
type Expirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// Reaper calls Expirer on a fixed interval. Runs never overlap.
type Reaper struct {
	sched    gocron.Scheduler
	expirer  Expirer
	interval time.Duration
}

func NewReaper(expirer Expirer, interval time.Duration, clock clockwork.Clock) (*Reaper, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("reaper interval must be positive, got %s", interval)
	}
	sched, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Reaper{sched: sched, expirer: expirer, interval: interval}, nil
}

// Start registers the sweep and starts the scheduler. The sweep stops when
// ctx is done or Shutdown is called.
func (r *Reaper) Start(ctx context.Context) error {
	_, err := r.sched.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() { r.sweep(ctx) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("expire-overdue-turns"),
	)
	if err != nil {
		return fmt.Errorf("register reaper job: %w", err)
	}
	r.sched.Start()
	log.Info().Dur("interval", r.interval).Msg("turn reaper started")
	return nil
}

func (r *Reaper) Shutdown() error {
	return r.sched.Shutdown()
}

func (r *Reaper) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	moved, err := r.expirer.ExpireOverdue(ctx)
	if err != nil {
		log.Error().Err(err).Msg("reaper sweep failed")
		return
	}
	if moved > 0 {
		log.Info().Int("matches", moved).Msg("reaper expired overdue turns")
	}
}
