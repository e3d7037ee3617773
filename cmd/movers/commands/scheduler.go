package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/movers/internal/scheduler"
	"github.com/wonny/movers/internal/scheduler/jobs"
	"github.com/wonny/movers/pkg/logger"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Scheduled snapshot refresh",
	Long: `Runs the snapshot pipeline on cron schedules evaluated in the
market timezone.

Subcommands:
  start   - start the scheduler daemon
  list    - list registered jobs
  run     - run a job immediately
  status  - show job statistics

Example:
  go run ./cmd/movers scheduler start
  go run ./cmd/movers scheduler list
  go run ./cmd/movers scheduler run snapshot_close`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		Long: `Starts the scheduler with the registered jobs:
- snapshot_intraday: SNAPSHOT_SCHEDULE (default every 10 minutes, 09:00-13:59 Mon-Fri)
- snapshot_close:    SNAPSHOT_SCHEDULE_CLOSE (default 14:35 Mon-Fri)

Stop with Ctrl+C.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run a job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show job statistics",
		RunE:  showStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Movers Scheduler ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, rt, err := initScheduler(ctx)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer rt.Close()

	sched.Start()

	fmt.Fprintln(out, "\n✅ Scheduler started successfully")
	fmt.Fprintln(out, "\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Fprintf(out, "  - %s (next: %s)\n", jobName, sched.NextRun(jobName).Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Fprintln(out, "\nShutting down scheduler...")
	sched.Stop()
	fmt.Fprintln(out, "Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, rt, err := initScheduler(context.Background())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Registered jobs:")
	for name, stat := range sched.GetJobStats() {
		fmt.Fprintf(out, "  - %s [%s]\n", name, stat.Schedule)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Running job: %s\n", jobName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, rt, err := initScheduler(ctx)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer rt.Close()

	result, err := sched.RunJob(ctx, jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	fmt.Fprintf(out, "✅ Job %s completed in %s\n", jobName, result.Duration)
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	sched, rt, err := initScheduler(context.Background())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Job Statistics:")
	fmt.Fprintln(out)

	for jobName, stat := range sched.GetJobStats() {
		fmt.Fprintf(out, "📊 %s\n", jobName)
		fmt.Fprintf(out, "   Schedule: %s\n", stat.Schedule)
		fmt.Fprintf(out, "   Total Runs: %d\n", stat.TotalRuns)
		fmt.Fprintf(out, "   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Fprintf(out, "   Failures: %d\n", stat.FailureCount)
		if stat.LastRun != nil {
			fmt.Fprintf(out, "   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}
		if stat.LastError != "" {
			fmt.Fprintf(out, "   Last Error: %s\n", stat.LastError)
		}
		fmt.Fprintln(out)
	}

	return nil
}

func initScheduler(ctx context.Context) (*scheduler.Scheduler, *runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	rt, err := newRuntime(ctx, cfg, log, runOptions{})
	if err != nil {
		return nil, nil, err
	}

	sched, err := newScheduler(rt)
	if err != nil {
		rt.Close()
		return nil, nil, err
	}
	return sched, rt, nil
}

// newScheduler registers the snapshot jobs against the runtime pipeline
func newScheduler(rt *runtime) (*scheduler.Scheduler, error) {
	sched := scheduler.New(rt.log, rt.snapCfg.Location)
	for _, job := range []scheduler.Job{
		jobs.NewSnapshotJob(jobs.IntradayJobName, rt.cfg.Schedule.Intraday, rt.pipeline, rt.log),
		jobs.NewSnapshotJob(jobs.PostCloseJobName, rt.cfg.Schedule.PostClose, rt.pipeline, rt.log),
	} {
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}
	return sched, nil
}
