// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/aristath/replica/internal/config"
	"github.com/aristath/replica/internal/database"
	"github.com/aristath/replica/internal/modules/pipeline"
	"github.com/aristath/replica/internal/modules/runs"
	"github.com/aristath/replica/internal/scheduler"
)

// Container holds every long-lived dependency of the process.
type Container struct {
	RunsDB *database.DB // Stored pipeline runs

	Model          *config.Model
	PipelineConfig pipeline.Config
	Pipeline       *pipeline.Pipeline

	RunRepo    *runs.Repository
	RunService *runs.Service

	Scheduler  *scheduler.Scheduler
	RefreshJob *scheduler.RefreshJob
}

// Close releases the container's resources.
func (c *Container) Close() error {
	if c.RunsDB != nil {
		return c.RunsDB.Close()
	}
	return nil
}
