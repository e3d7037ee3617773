package commands

import (
	"github.com/spf13/cobra"

	"github.com/wonny/movers/pkg/config"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "movers",
	Short: "TWSE market movers snapshot",
	Long: `Market movers snapshot service.

Fetches the TWSE daily quote table, ranks the top gainers and losers
by change percent and writes the result as a JSON artifact. When the
upstream is unavailable the previous artifact is re-emitted with a
stale marker.

Usage:
  go run ./cmd/movers [command]

Examples:
  go run ./cmd/movers run
  go run ./cmd/movers run --date 2024-01-15 --out /tmp/data.json
  go run ./cmd/movers show
  go run ./cmd/movers scheduler start
  go run ./cmd/movers api --port 8089`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig applies the global flags on top of the environment
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(configFile)
	if err != nil {
		return nil, err
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}
