package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/arcadia-eng/designdb/internal/metamodel"
	"github.com/arcadia-eng/designdb/internal/persist"
)

// NewValidateCommand loads a store file through the full validation path
// and reports the exact structural defect, if any. Exit code 0 means the
// file is sound, 1 names the defect, 2 is a usage error.
func NewValidateCommand(opts *RootOptions) *cobra.Command {
	var metamodelPath string

	cmd := &cobra.Command{
		Use:   "validate <store-file>",
		Short: "Validate a store file and name any structural defect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := metamodel.LoadFile(metamodelPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "loading metamodel", err)
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

			doc, err := persist.Load(args[0], meta)
			if err != nil {
				result := map[string]any{
					"valid":  false,
					"defect": classifyDefect(err),
					"detail": err.Error(),
				}
				if opts.Format == "json" {
					out.PrintJSON(result)
				} else {
					out.Printf("invalid: %s\n  %s\n", result["defect"], result["detail"])
				}
				return WrapExitError(ExitFailure, "store file is invalid", err)
			}

			result := map[string]any{
				"valid":     true,
				"frames":    len(doc.Frames),
				"snapshots": len(doc.Snapshots),
			}
			if opts.Format == "json" {
				return out.PrintJSON(result)
			}
			out.Printf("valid: %d frames, %d snapshots\n", len(doc.Frames), len(doc.Snapshots))
			return nil
		},
	}

	cmd.Flags().StringVarP(&metamodelPath, "metamodel", "m", "", "path to the CUE metamodel declaration (required)")
	cmd.MarkFlagRequired("metamodel")
	return cmd
}

// classifyDefect names the defect category for reporting.
func classifyDefect(err error) string {
	var (
		unknownVersion *persist.UnknownVersionError
		missingInfo    *persist.MissingInfoRecordError
		missingSnaps   *persist.MissingSnapshotsCollectionError
		missingFrames  *persist.MissingFramesCollectionError
		dangling       *persist.DanglingSnapshotReferenceError
		malformed      *persist.MalformedVersionGraphError
		schema         *metamodel.SchemaViolationError
		unknownType    *metamodel.UnknownTypeError
		persistence    *persist.PersistenceError
	)
	switch {
	case errors.As(err, &unknownVersion):
		return "unknown_version"
	case errors.As(err, &missingInfo):
		return "missing_info_record"
	case errors.As(err, &missingSnaps):
		return "missing_snapshots_collection"
	case errors.As(err, &missingFrames):
		return "missing_frames_collection"
	case errors.As(err, &dangling):
		return "dangling_snapshot_reference"
	case errors.As(err, &malformed):
		return "malformed_version_graph"
	case errors.As(err, &schema):
		return "schema_violation"
	case errors.As(err, &unknownType):
		return "unknown_type"
	case errors.As(err, &persistence):
		return "persistence"
	}
	return "unknown"
}
