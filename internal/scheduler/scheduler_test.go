package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/movers/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	failures int32
	calls    int32
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Run(ctx context.Context) error {
	n := atomic.AddInt32(&j.calls, 1)
	if n <= atomic.LoadInt32(&j.failures) {
		return errors.New("transient")
	}
	return nil
}

func TestAddJob(t *testing.T) {
	s := New(logger.Nop(), time.UTC)

	require.NoError(t, s.AddJob(&countingJob{name: "b", schedule: "0 */10 9-13 * * MON-FRI"}))
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "0 35 14 * * MON-FRI"}))

	assert.Error(t, s.AddJob(&countingJob{name: "a", schedule: "@daily"}), "duplicate name")
	assert.Error(t, s.AddJob(&countingJob{name: "c", schedule: "not a cron"}))
	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())
}

func TestRemoveJob(t *testing.T) {
	s := New(logger.Nop(), time.UTC)
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "@daily"}))

	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("a"))
}

func TestRunJob_RetriesAndRecordsHistory(t *testing.T) {
	s := New(logger.Nop(), time.UTC).WithRetry(2, time.Millisecond)
	job := &countingJob{name: "snap", schedule: "@daily", failures: 2}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob(context.Background(), "snap")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int32(3), atomic.LoadInt32(&job.calls))

	history, err := s.GetJobHistory("snap")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)

	stats := s.GetJobStats()["snap"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.SuccessCount)
	assert.NotNil(t, stats.LastRun)
}

func TestRunJob_Failure(t *testing.T) {
	s := New(logger.Nop(), time.UTC)
	require.NoError(t, s.AddJob(&countingJob{name: "snap", schedule: "@daily", failures: 10}))

	result, err := s.RunJob(context.Background(), "snap")
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "transient", result.Error)

	stats := s.GetJobStats()["snap"]
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, "transient", stats.LastError)
}

func TestRunJob_Unknown(t *testing.T) {
	_, err := New(logger.Nop(), time.UTC).RunJob(context.Background(), "missing")
	assert.Error(t, err)
}

func TestNextRun(t *testing.T) {
	s := New(logger.Nop(), time.UTC)
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "@every 1h"}))

	s.Start()
	defer s.Stop()

	assert.False(t, s.NextRun("a").IsZero())
	assert.True(t, s.NextRun("missing").IsZero())
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < maxHistory+5; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}

	assert.Len(t, h.Results, maxHistory)
	assert.Len(t, h.GetLatestResults(3), 3)
	assert.Empty(t, h.GetLatestResults(0))
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 0.0001)
}
