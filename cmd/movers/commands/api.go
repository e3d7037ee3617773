package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/movers/internal/api"
	"github.com/wonny/movers/internal/api/handlers"
	"github.com/wonny/movers/pkg/logger"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Serves the stored snapshot over HTTP.

Endpoints:
  GET  /health                 - Health check
  GET  /api/snapshot           - Latest stored snapshot
  POST /api/snapshot/refresh   - Run the pipeline once
  GET  /api/snapshot/history   - Snapshot history (requires DATABASE_URL)

Example:
  go run ./cmd/movers api
  go run ./cmd/movers api --port 8089
  go run ./cmd/movers api --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port, default PORT")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "also run the snapshot scheduler")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}
	log := logger.New(cfg)

	rt, err := newRuntime(ctx, cfg, log, runOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	var history handlers.HistoryLister
	if rt.history != nil {
		history = rt.history
	}
	snapshotHandler := handlers.NewSnapshotHandler(rt.store, rt.pipeline, history, log)

	if apiWithScheduler {
		sched, err := newScheduler(rt)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	server := api.New(cfg.Port, log, api.NewRouter(snapshotHandler, log))
	return server.Run(ctx)
}
