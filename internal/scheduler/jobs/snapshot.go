package jobs

import (
	"context"

	"github.com/wonny/movers/internal/movers"
	"github.com/wonny/movers/pkg/logger"
)

// Runner produces one snapshot
type Runner interface {
	Run(ctx context.Context) (*movers.RunResult, error)
}

// SnapshotJob refreshes the market movers artifact on a cron schedule.
// Degraded runs still succeed; only a failed save fails the job.
// ⭐ SSOT: 스냅샷 스케줄은 이 Job에서만
type SnapshotJob struct {
	name     string
	schedule string
	runner   Runner
	logger   *logger.Logger
}

// NewSnapshotJob creates a snapshot job
func NewSnapshotJob(name, schedule string, runner Runner, log *logger.Logger) *SnapshotJob {
	return &SnapshotJob{
		name:     name,
		schedule: schedule,
		runner:   runner,
		logger:   log,
	}
}

// Name returns the job name
func (j *SnapshotJob) Name() string {
	return j.name
}

// Schedule returns the cron schedule (with seconds)
func (j *SnapshotJob) Schedule() string {
	return j.schedule
}

// Run executes one pipeline run
func (j *SnapshotJob) Run(ctx context.Context) error {
	result, err := j.runner.Run(ctx)
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"job":    j.name,
		"run_id": result.RunID,
		"state":  result.State.String(),
	}).Debug("Snapshot job finished")
	return nil
}

// Job names
const (
	IntradayJobName  = "snapshot_intraday"
	PostCloseJobName = "snapshot_close"
)
