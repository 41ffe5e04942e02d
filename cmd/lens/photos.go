package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lensapp/lens/internal/camroll"
)

func newPhotosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "photos",
		GroupID: "inspect",
		Short:   "List the local camera roll",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			roll, err := camroll.Load(cfg.CameraRollPath())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(roll)
			}

			if len(roll) == 0 {
				fmt.Fprintln(w, renderMuted("Camera roll is empty"))
				return nil
			}
			fmt.Fprintf(w, "%s (%d)\n", renderAccent("Camera roll"), len(roll))
			for i, e := range roll {
				fmt.Fprintf(w, "%4d  %-24s %s\n", i, shortID(e.ID),
					renderMuted(fmt.Sprintf("%.0fx%.0f", e.Width, e.Height)))
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Output the camera roll file format")
	return cmd
}
