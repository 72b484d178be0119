package cron

import (
	"context"
	"errors"
	"time"

	"github.com/flintflours/storefront-backend/pkg/logger"
	"github.com/flintflours/storefront-backend/pkg/metrics"
)

const defaultInterval = 15 * time.Minute

type Options struct {
	Logger   *logger.Logger
	Registry *Registry
	Locker   Locker
	Metrics  *metrics.Jobs
	Interval time.Duration
}

// Outcome is the result of one job within a cycle.
type Outcome struct {
	Job      string
	Affected int64
	Err      error
	Duration time.Duration
}

// Service runs the registered jobs on a fixed cadence while holding the lease.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	locker   Locker
	metrics  *metrics.Jobs
	interval time.Duration
}

func NewService(opts Options) (*Service, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger required")
	}
	if opts.Locker == nil {
		return nil, errors.New("locker required")
	}
	if opts.Registry == nil || opts.Registry.Len() == 0 {
		return nil, errors.New("at least one job required")
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     opts.Logger,
		registry: opts.Registry,
		locker:   opts.Locker,
		metrics:  opts.Metrics,
		interval: interval,
	}, nil
}

// Run executes a cycle immediately and then on every tick until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "maintenance cycle failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "maintenance loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce runs every job once. It returns nil outcomes when another worker
// holds the lease. A failing job does not stop the ones after it.
func (s *Service) RunOnce(ctx context.Context) ([]Outcome, error) {
	release, ok, err := s.locker.TryAcquire(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logg.Info(ctx, "lease held elsewhere; skipping cycle")
		return nil, nil
	}
	defer func() {
		// released even when ctx is already cancelled
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := release(relCtx); err != nil {
			s.logg.Error(ctx, "release lease", err)
		}
	}()

	jobs := s.registry.Jobs()
	outcomes := make([]Outcome, 0, len(jobs))
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		outcomes = append(outcomes, s.runJob(ctx, job))
	}
	return outcomes, nil
}

func (s *Service) runJob(ctx context.Context, job Job) Outcome {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "maintenance.job"})
	start := time.Now()
	affected, err := job.Run(jobCtx)
	out := Outcome{Job: job.Name(), Affected: affected, Err: err, Duration: time.Since(start)}
	s.metrics.Finished(out.Job, out.Affected, out.Err, out.Duration)

	jobCtx = s.logg.WithFields(jobCtx, map[string]any{
		"duration_ms": out.Duration.Milliseconds(),
		"affected":    out.Affected,
	})
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
	} else {
		s.logg.Info(jobCtx, "job completed")
	}
	return out
}
