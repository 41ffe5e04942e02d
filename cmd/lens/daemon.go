package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lensapp/lens/internal/daemon"
	"github.com/lensapp/lens/internal/logging"
)

func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "daemon",
		GroupID: "run",
		Short:   "Run the sync daemon in the foreground",
		Long: `Run the sync daemon until interrupted.

The daemon:
  1. Loads the cache (key "LensCache") and the camera roll
  2. Sweeps tracked albums every sync.interval and publishes new photos
  3. Delivers saved photos through the request loop every service.tick
  4. Captures images dropped in the inbox directory
  5. Serves the dashboard when dashboard.addr is set

Example usage:
  lens daemon
  lens daemon --data-dir /tmp/lens
  LENS_DASHBOARD_ADDR=127.0.0.1:7490 lens daemon`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("dashboard"); addr != "" {
				cfg.Dashboard.Addr = addr
			}

			out, err := logging.Open(cfg.Log)
			if err != nil {
				return err
			}
			defer out.Close()

			d, err := daemon.New(cfg, out)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := d.Start(ctx); err != nil {
				return fmt.Errorf("failed to start daemon: %w", err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s Daemon running (data dir %s)\n", renderAccent("●"), cfg.DataDir)
			if srv := d.Dashboard(); srv != nil {
				fmt.Fprintf(w, "Dashboard: http://%s\n", srv.Addr())
			}
			fmt.Fprintln(w, renderMuted("Press Ctrl+C to stop..."))

			<-ctx.Done()

			fmt.Fprintln(w, "\nShutting down...")
			if err := d.Stop(); err != nil {
				return fmt.Errorf("error during shutdown: %w", err)
			}
			fmt.Fprintf(w, "%s Daemon stopped\n", renderPass("✓"))
			return nil
		},
	}
	cmd.Flags().String("dashboard", "", "Dashboard listen address (overrides config)")
	return cmd
}
