package cli

import (
	"github.com/spf13/cobra"

	"github.com/arcadia-eng/designdb/internal/metamodel"
	"github.com/arcadia-eng/designdb/internal/store"
)

// NewCompactCommand runs the retention garbage collection pass over a
// store file: frames outside the retention policy (and snapshots only
// they referenced) are removed, and the compacted store is written back
// atomically.
func NewCompactCommand(opts *RootOptions) *cobra.Command {
	var metamodelPath string
	var keep int

	cmd := &cobra.Command{
		Use:   "compact <store-file>",
		Short: "Prune old frames per a retention policy and rewrite the file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := metamodel.LoadFile(metamodelPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "loading metamodel", err)
			}

			s, err := store.Open(args[0], meta, store.Options{
				Logger:    opts.Logger(),
				Retention: store.Retention{KeepFrames: keep},
			})
			if err != nil {
				return WrapExitError(ExitFailure, "opening store", err)
			}

			stats, err := s.GC()
			if err != nil {
				return WrapExitError(ExitFailure, "gc pass", err)
			}
			if err := s.Save(args[0]); err != nil {
				return WrapExitError(ExitFailure, "saving store", err)
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			result := map[string]any{
				"frames_removed":    stats.FramesRemoved,
				"snapshots_removed": stats.SnapshotsRemoved,
				"frames_kept":       len(s.Frames()),
			}
			if opts.Format == "json" {
				return out.PrintJSON(result)
			}
			out.Printf("removed %d frames, %d snapshots; %d frames kept\n",
				stats.FramesRemoved, stats.SnapshotsRemoved, len(s.Frames()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&metamodelPath, "metamodel", "m", "", "path to the CUE metamodel declaration (required)")
	cmd.Flags().IntVar(&keep, "keep", 0, "minimum number of most recent frames to retain (0 keeps all)")
	cmd.MarkFlagRequired("metamodel")
	return cmd
}
