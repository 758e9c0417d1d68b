// AngelaMos | 2026
// scheduler.go

package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler runs background work outside the request lifecycle. Tasks receive
// a context that lives until Shutdown has drained running tasks, never the
// context of the request that scheduled them.
type Scheduler struct {
	sched    gocron.Scheduler
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *slog.Logger
	deferred atomic.Int64
}

func NewScheduler(logger *slog.Logger) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		sched:  sched,
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}, nil
}

func (s *Scheduler) Every(
	interval time.Duration,
	name string,
	task func(ctx context.Context),
) error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.wrap(name, task)),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

// After runs task once after delay. The job is removed from the scheduler
// once it has run.
func (s *Scheduler) After(
	delay time.Duration,
	name string,
	task func(ctx context.Context),
) error {
	run := s.wrap(name, task)

	start := gocron.OneTimeJobStartImmediately()
	if delay > 0 {
		start = gocron.OneTimeJobStartDateTime(time.Now().Add(delay))
	}

	s.deferred.Add(1)
	_, err := s.sched.NewJob(
		gocron.OneTimeJob(start),
		gocron.NewTask(func() {
			defer s.deferred.Add(-1)
			run()
		}),
		gocron.WithName(name),
		gocron.WithLimitedRuns(1),
	)
	if err != nil {
		s.deferred.Add(-1)
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}


func (s *Scheduler) Start() {
	s.sched.Start()
}

// Shutdown waits for running tasks before cancelling their context. Deferred
// tasks that have not started yet are dropped.
func (s *Scheduler) Shutdown() error {
	defer s.cancel()

	err := s.sched.Shutdown()
	if dropped := s.deferred.Load(); dropped > 0 {
		s.logger.Warn("dropping deferred tasks on shutdown", "count", dropped)
	}
	if err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	return nil
}

func (s *Scheduler) wrap(name string, task func(ctx context.Context)) func() {
	return func() {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("scheduled task panicked",
					"job", name,
					"panic", rec,
				)
			}
		}()
		task(s.ctx)
	}
}
