// Package jobs runs the daily maintenance sweeps. Every run holds a lease so
// only one instance does the work.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fileflow/internal/lease"
)

// Job is a unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type entry struct {
	spec Spec
	job  Job
}

// Scheduler fires registered jobs at their daily time.
type Scheduler struct {
	locker  lease.Locker
	logger  *slog.Logger
	specs   map[string]Spec
	entries []entry
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler over the given schedule.
func NewScheduler(specs []Spec, locker lease.Locker, logger *slog.Logger) *Scheduler {
	byName := make(map[string]Spec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}
	return &Scheduler{
		locker: locker,
		logger: logger,
		specs:  byName,
		now:    time.Now,
	}
}

// Register attaches job to its schedule entry.
func (s *Scheduler) Register(job Job) error {
	spec, ok := s.specs[job.Name()]
	if !ok {
		return fmt.Errorf("job %s has no schedule entry", job.Name())
	}
	for _, e := range s.entries {
		if e.spec.Name == spec.Name {
			return fmt.Errorf("job %s registered twice", spec.Name)
		}
	}
	s.entries = append(s.entries, entry{spec: spec, job: job})
	return nil
}

// Start launches one timer loop per registered job. Loops exit when ctx is
// cancelled; Wait blocks until they have.
func (s *Scheduler) Start(ctx context.Context) {
	for _, e := range s.entries {
		s.wg.Add(1)
		go s.loop(ctx, e)
		s.logger.Info("job scheduled",
			"job", e.spec.Name,
			"next_run", e.spec.Next(s.now()),
		)
	}
}

// Wait blocks until every loop started by Start has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, e entry) {
	defer s.wg.Done()
	for {
		next := e.spec.Next(s.now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.run(ctx, e)
		}
	}
}

// RunOnce runs the named job now, under its lease.
func (s *Scheduler) RunOnce(ctx context.Context, name string) (bool, error) {
	for _, e := range s.entries {
		if e.spec.Name == name {
			return s.run(ctx, e)
		}
	}
	return false, fmt.Errorf("unknown job %s", name)
}

func (s *Scheduler) run(ctx context.Context, e entry) (bool, error) {
	start := time.Now()
	ran, err := lease.Run(ctx, s.locker, e.spec.Name, e.spec.LeaseTTL, s.logger, func(ctx context.Context) error {
		s.logger.Info("job started", "job", e.spec.Name)
		return e.job.Run(ctx)
	})
	if err != nil {
		s.logger.Error("job failed",
			"job", e.spec.Name,
			"duration", time.Since(start),
			"error", err,
		)
		return ran, err
	}
	if ran {
		s.logger.Info("job finished", "job", e.spec.Name, "duration", time.Since(start))
	}
	return ran, nil
}
