package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/movers/pkg/logger"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Produce one snapshot",
	Long: `Fetches the quote table once, ranks gainers and losers and writes
the artifact. A failed or empty fetch re-emits the previous artifact
with a stale marker (or a placeholder when there is none); the command
only fails when the artifact cannot be written.

Example:
  go run ./cmd/movers run
  go run ./cmd/movers run --format html
  go run ./cmd/movers run --date 2024-01-15 --out /tmp/data.json
  go run ./cmd/movers run --policy policy.yaml`,
	RunE: runSnapshot,
}

var (
	runFormat string
	runDate   string
	runOut    string
	runPolicy string
	runQuiet  bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFormat, "format", "", "feed format (json|html), default TWSE_FORMAT")
	runCmd.Flags().StringVar(&runDate, "date", "", "trading date (YYYY-MM-DD), default latest session")
	runCmd.Flags().StringVar(&runOut, "out", "", "artifact path, default ARTIFACT_PATH")
	runCmd.Flags().StringVar(&runPolicy, "policy", "", "YAML ranking policy overlay")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "do not print the snapshot")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	opts := runOptions{format: runFormat, out: runOut, policyFile: runPolicy}
	if runDate != "" {
		d, err := time.Parse("2006-01-02", runDate)
		if err != nil {
			return fmt.Errorf("invalid --date %q (expected YYYY-MM-DD)", runDate)
		}
		opts.date = d
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg, log, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := rt.pipeline.Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printRunSummary(out, result, rt.artifact.Path())
	if !runQuiet {
		printSnapshot(out, result.Snapshot)
	}
	return nil
}
