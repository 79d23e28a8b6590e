package scheduler

import (
	"context"
	"time"

	"github.com/aristath/replica/internal/modules/runs"
)

// Refresher re-runs the model and stores the result.
type Refresher interface {
	Refresh(ctx context.Context) (runs.Run, error)
}

// RefreshJob re-runs the pipeline on schedule.
type RefreshJob struct {
	refresher Refresher
	timeout   time.Duration
}

// NewRefreshJob creates a refresh job. A zero timeout means no deadline.
func NewRefreshJob(refresher Refresher, timeout time.Duration) *RefreshJob {
	return &RefreshJob{refresher: refresher, timeout: timeout}
}

// Name implements Job.
func (j *RefreshJob) Name() string { return "pipeline_refresh" }

// Run implements Job.
func (j *RefreshJob) Run() error {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}
	_, err := j.refresher.Refresh(ctx)
	return err
}
