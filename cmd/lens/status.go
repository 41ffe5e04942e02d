package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lensapp/lens/internal/cachestore"
	"github.com/lensapp/lens/internal/schema"
	"github.com/lensapp/lens/internal/service"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "status",
		GroupID: "inspect",
		Short:   "Show the persisted sync cache",
		Long: `Show the albums, cursors and photo counts stored in the sync cache.

The cache is read directly from the cache store, so a bolt cache can only be
inspected while the daemon is stopped.

Example usage:
  lens status
  lens status --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			switch format {
			case "text", "json", "yaml":
			default:
				return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			backend, err := cachestore.Open(cfg.Cache.Backend, cfg.Cache.Path)
			if err != nil {
				return fmt.Errorf("failed to open cache store: %w", err)
			}
			defer backend.Close()

			cache, found, err := cachestore.Load[*schema.SyncCache](cmd.Context(), backend, service.CacheKey)
			if err != nil {
				return fmt.Errorf("failed to load cache: %w", err)
			}
			if !found || cache == nil {
				cache = schema.NewSyncCache()
			}
			cache.Normalize()

			return writeSummary(cmd.OutOrStdout(), format, cache.Summary(), found)
		},
	}
	cmd.Flags().StringP("format", "f", "text", "Output format: text, json or yaml")
	return cmd
}

func writeSummary(w io.Writer, format string, s schema.Summary, found bool) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	}

	if !found {
		fmt.Fprintf(w, "%s No cache yet; start the daemon to populate it\n", renderWarn("!"))
		return nil
	}

	fmt.Fprintln(w, renderAccent("Sync cache"))
	fmt.Fprintln(w, renderField("Photos", fmt.Sprint(s.Photos)))
	fmt.Fprintln(w, renderField("Albums", fmt.Sprint(len(s.Albums))))
	fmt.Fprintln(w, renderField("Album cursor", fmt.Sprint(s.AlbumsIdx)))
	lastSync := "never"
	if !s.LastSync.IsZero() {
		lastSync = s.LastSync.Local().Format(time.RFC3339)
	}
	fmt.Fprintln(w, renderField("Last sync", lastSync))

	if len(s.Albums) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	for _, a := range s.Albums {
		fmt.Fprintf(w, "  %s %s\n", renderField(a.Path.String(), fmt.Sprintf("%d photos", a.Photos)),
			renderMuted(fmt.Sprintf("(cursor %d)", a.Cursor)))
	}
	return nil
}
