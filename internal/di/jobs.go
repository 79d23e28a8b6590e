package di

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/replica/internal/config"
	"github.com/aristath/replica/internal/scheduler"
)

// refreshTimeout bounds one scheduled pipeline run.
const refreshTimeout = 10 * time.Minute

// RegisterJobs creates the scheduler and registers the refresh job when a
// schedule is configured. The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.Scheduler = scheduler.New(log)
	container.RefreshJob = scheduler.NewRefreshJob(container.RunService, refreshTimeout)

	if cfg.RefreshSchedule == "" {
		log.Info().Msg("No refresh schedule configured; runs only on startup and on demand")
		return nil
	}
	if err := container.Scheduler.AddJob(cfg.RefreshSchedule, container.RefreshJob); err != nil {
		return fmt.Errorf("failed to register refresh job: %w", err)
	}
	return nil
}
