package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/movers/internal/store"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored artifact",
	Long: `Reads the artifact without contacting the exchange.

Example:
  go run ./cmd/movers show
  go run ./cmd/movers show --json
  go run ./cmd/movers show --out /tmp/data.json`,
	RunE: runShow,
}

var (
	showOut  string
	showJSON bool
)

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVar(&showOut, "out", "", "artifact path, default ARTIFACT_PATH")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print the artifact document as stored")
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	path := cfg.Artifact.Path
	if showOut != "" {
		path = showOut
	}

	snapshot, err := store.NewFileStore(path).LoadLast(context.Background())
	if err != nil {
		return err
	}
	if snapshot == nil {
		return fmt.Errorf("no artifact at %s (run `movers run` first)", path)
	}

	out := cmd.OutOrStdout()
	if showJSON {
		data, err := store.Encode(snapshot)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	printSnapshot(out, snapshot)
	return nil
}
