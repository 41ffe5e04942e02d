// Command lens runs the photo sync daemon and inspects its stores.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lensapp/lens/internal/config"
)

// Version is set at build time.
var Version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lens",
		Short: "Camera roll sync daemon",
		Long: `lens keeps a local photo cache in sync with a record store.

The daemon sweeps each tracked album every second, inserts new photos at the
album cursor and persists its progress so restarts resume where they left off.
Images dropped in the capture inbox are saved to the camera roll.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "Config file (default ~/.config/lens/config.yaml)")
	root.PersistentFlags().String("data-dir", "", "Data directory (overrides config)")

	root.AddGroup(
		&cobra.Group{ID: "run", Title: "Running:"},
		&cobra.Group{ID: "inspect", Title: "Inspecting:"},
	)

	root.AddCommand(
		newDaemonCmd(),
		newStatusCmd(),
		newPublishCmd(),
		newPhotosCmd(),
		newSettingsCmd(),
	)
	return root
}

// loadConfig resolves the configuration for cmd, applying the persistent
// flags over the file and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	v, err := config.New(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("data-dir") {
		dir, _ := cmd.Flags().GetString("data-dir")
		v.Set("data_dir", dir)
	}
	return config.FromViper(v)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
