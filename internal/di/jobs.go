package di

import (
	"fmt"

	"github.com/aristath/thirteenf/internal/clientdata"
	"github.com/aristath/thirteenf/internal/config"
	"github.com/aristath/thirteenf/internal/scheduler"
	"github.com/rs/zerolog"
)

// RegisterJobs creates the scheduler and registers background jobs on it.
// The scheduler is not started here.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	sched := scheduler.New(log)
	container.Scheduler = sched

	jobs := &JobInstances{
		ClientDataCleanup: clientdata.NewCleanupJob(container.ClientDataRepo, log),
		PortfolioWarmup:   scheduler.NewPortfolioWarmupJob(container.PortfolioService, cfg.HTTPRequestTimeout, log),
	}

	if err := sched.AddJob(cfg.CacheCleanupSchedule, jobs.ClientDataCleanup); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", jobs.ClientDataCleanup.Name(), err)
	}
	if err := sched.AddJob(cfg.PortfolioWarmupSchedule, jobs.PortfolioWarmup); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", jobs.PortfolioWarmup.Name(), err)
	}

	return jobs, nil
}
