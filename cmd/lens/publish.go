package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lensapp/lens/internal/daemon"
	"github.com/lensapp/lens/internal/inbox"
	"github.com/lensapp/lens/internal/record"
	"github.com/lensapp/lens/internal/schema"
)

func newPublishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "publish <album> <file>...",
		GroupID: "inspect",
		Short:   "Write photo records into the record store",
		Long: `Publish photos as records under an album so the daemon discovers them.

Each file is stored as its base64 encoded contents, the same form captured
photos take. With --id the arguments are used as photo identifiers instead.
Records land at the first free index of the album.

The pebble record store is locked by a running daemon; stop it first.

Example usage:
  lens publish /MYPHOTOS shot1.png shot2.jpg
  lens publish --id /PHOTOS/TRIP photo-a photo-b`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawIDs, _ := cmd.Flags().GetBool("id")

			album, err := schema.ParsePath(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Records.Backend == "memory" {
				return fmt.Errorf("the memory record store does not outlive this command")
			}

			store, err := daemon.OpenRecordStore(cfg)
			if err != nil {
				return fmt.Errorf("failed to open record store: %w", err)
			}
			defer store.Close()

			w := cmd.OutOrStdout()
			var next uint32
			for _, arg := range args[1:] {
				id := arg
				if !rawIDs {
					capture, err := inbox.ReadCapture(arg)
					if err != nil {
						return err
					}
					id = capture.Payload
				}

				idx, err := record.Publish(cmd.Context(), store, album, schema.PhotoProtocol, next, record.EncodePhoto(id))
				if err != nil {
					return fmt.Errorf("failed to publish %s: %w", arg, err)
				}
				next = idx + 1
				fmt.Fprintf(w, "%s %s -> %s\n", renderPass("✓"), arg, record.ChildPath(album, idx))
			}
			return nil
		},
	}
	cmd.Flags().Bool("id", false, "Treat arguments as photo identifiers rather than files")
	return cmd
}
