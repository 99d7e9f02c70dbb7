// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/aristath/thirteenf/internal/utils"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// ErrJobRunning is returned when a job is started while a previous run is in flight
var ErrJobRunning = errors.New("job already running")

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	// running is keyed by job name and shared by cron and RunNow
	mu      sync.Mutex
	running map[string]*atomic.Bool
}

// New creates a new scheduler
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:     log.With().Str("component", "scheduler").Logger(),
		running: make(map[string]*atomic.Bool),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule. An empty schedule disables the job.
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@daily"             - Every day at midnight
//   - "@every 6h"          - Every 6 hours
func (s *Scheduler) AddJob(schedule string, job Job) error {
	if schedule == "" {
		s.log.Info().Str("job", job.Name()).Msg("Job disabled")
		return nil
	}

	_, err := s.cron.AddFunc(schedule, func() {
		s.log.Debug().Str("job", job.Name()).Msg("Running job")

		if err := s.run(job); errors.Is(err, ErrJobRunning) {
			s.log.Debug().Str("job", job.Name()).Msg("Job still running, skipped")
		} else if err != nil {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Msg("Job failed")
		} else {
			s.log.Debug().Str("job", job.Name()).Msg("Job completed")
		}
	})

	if err != nil {
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately (outside schedule). It returns
// ErrJobRunning if the job is already in flight.
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return s.run(job)
}

// IsRunning reports whether the named job is in flight
func (s *Scheduler) IsRunning(name string) bool {
	return s.flag(name).Load()
}

func (s *Scheduler) flag(name string) *atomic.Bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.running[name]
	if !ok {
		f = new(atomic.Bool)
		s.running[name] = f
	}
	return f
}

func (s *Scheduler) run(job Job) error {
	f := s.flag(job.Name())
	if !f.CompareAndSwap(false, true) {
		return ErrJobRunning
	}
	defer f.Store(false)

	stop := utils.OperationTimer(job.Name(), utils.DefaultSlowThreshold, s.log)
	defer stop()
	return job.Run()
}
