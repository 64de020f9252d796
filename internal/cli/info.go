package cli

import (
	"github.com/spf13/cobra"

	"github.com/arcadia-eng/designdb/internal/metamodel"
	"github.com/arcadia-eng/designdb/internal/store"
)

// NewInfoCommand prints the header of a persisted store: design identity,
// format version, metamodel name, head frame and collection sizes.
func NewInfoCommand(opts *RootOptions) *cobra.Command {
	var metamodelPath string

	cmd := &cobra.Command{
		Use:   "info <store-file>",
		Short: "Show store header and collection sizes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(args[0], metamodelPath, opts)
			if err != nil {
				return err
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			head := s.Head()
			summary := map[string]any{
				"design_id": s.DesignID().String(),
				"metamodel": s.Metamodel().Name(),
				"head":      head.String(),
				"frames":    len(s.Frames()),
				"snapshots": s.SnapshotCount(),
			}
			if opts.Format == "json" {
				return out.PrintJSON(summary)
			}
			out.Printf("design:    %s\n", summary["design_id"])
			out.Printf("metamodel: %s\n", summary["metamodel"])
			out.Printf("head:      frame %s\n", summary["head"])
			out.Printf("frames:    %d\n", summary["frames"])
			out.Printf("snapshots: %d\n", summary["snapshots"])
			return nil
		},
	}

	cmd.Flags().StringVarP(&metamodelPath, "metamodel", "m", "", "path to the CUE metamodel declaration (required)")
	cmd.MarkFlagRequired("metamodel")
	return cmd
}

// openStore loads the metamodel and opens the store file, mapping failures
// to exit codes.
func openStore(path, metamodelPath string, opts *RootOptions) (*store.Store, error) {
	meta, err := metamodel.LoadFile(metamodelPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading metamodel", err)
	}
	s, err := store.Open(path, meta, store.Options{Logger: opts.Logger()})
	if err != nil {
		return nil, WrapExitError(ExitFailure, "opening store", err)
	}
	return s, nil
}
