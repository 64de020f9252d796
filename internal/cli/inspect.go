package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arcadia-eng/designdb/internal/model"
	"github.com/arcadia-eng/designdb/internal/store"
)

// NewInspectCommand dumps the version graph and, per frame, the live
// objects with their component data. Output is deterministic: frames in
// commit order, objects and attributes sorted.
func NewInspectCommand(opts *RootOptions) *cobra.Command {
	var metamodelPath string
	var frameArg string

	cmd := &cobra.Command{
		Use:   "inspect <store-file>",
		Short: "Dump frames and object state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(args[0], metamodelPath, opts)
			if err != nil {
				return err
			}

			frames := s.Frames()
			if frameArg != "" {
				id, err := model.ParseFrameID(frameArg)
				if err != nil {
					return WrapExitError(ExitCommandError, fmt.Sprintf("invalid frame id %q", frameArg), err)
				}
				frames = []model.FrameID{id}
			}

			report, err := buildInspectReport(s, frames)
			if err != nil {
				return WrapExitError(ExitFailure, "inspecting store", err)
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if opts.Format == "json" {
				return out.PrintJSON(report)
			}
			out.Printf("%s", renderInspectText(s, report))
			return nil
		},
	}

	cmd.Flags().StringVarP(&metamodelPath, "metamodel", "m", "", "path to the CUE metamodel declaration (required)")
	cmd.Flags().StringVar(&frameArg, "frame", "", "inspect a single frame by id")
	cmd.MarkFlagRequired("metamodel")
	return cmd
}

// FrameReport is the rendered state of one frame.
type FrameReport struct {
	Frame   string         `json:"frame"`
	Parent  string         `json:"parent,omitempty"`
	Head    bool           `json:"head,omitempty"`
	Objects []ObjectReport `json:"objects"`
}

// ObjectReport is the rendered state of one object within a frame.
type ObjectReport struct {
	Object     string                    `json:"object"`
	Snapshot   string                    `json:"snapshot"`
	Type       string                    `json:"type"`
	Components map[string]map[string]any `json:"components"`
}

func buildInspectReport(s *store.Store, frames []model.FrameID) ([]FrameReport, error) {
	head := s.Head()
	var report []FrameReport
	for _, id := range frames {
		view, err := s.View(id)
		if err != nil {
			return nil, err
		}
		frame, err := s.Frame(id)
		if err != nil {
			return nil, err
		}

		fr := FrameReport{Frame: id.String(), Head: id == head}
		if parent, ok := frame.Parent(); ok {
			fr.Parent = parent.String()
		}
		for _, obj := range view.Objects() {
			snap, err := view.Resolve(obj)
			if err != nil {
				return nil, err
			}
			or := ObjectReport{
				Object:     obj.String(),
				Snapshot:   snap.SnapshotID().String(),
				Type:       snap.TypeName(),
				Components: make(map[string]map[string]any),
			}
			for _, kind := range snap.ComponentKinds() {
				data, _ := snap.Component(kind)
				attrs := make(map[string]any, data.Len())
				for _, name := range data.AttributeNames() {
					v, _ := data.Get(name)
					attrs[name] = model.ToAny(v)
				}
				or.Components[string(kind)] = attrs
			}
			fr.Objects = append(fr.Objects, or)
		}
		report = append(report, fr)
	}
	return report, nil
}

func renderInspectText(s *store.Store, report []FrameReport) string {
	var b strings.Builder
	for _, fr := range report {
		marker := ""
		if fr.Head {
			marker = " (head)"
		}
		if fr.Parent != "" {
			fmt.Fprintf(&b, "frame %s <- %s%s\n", fr.Frame, fr.Parent, marker)
		} else {
			fmt.Fprintf(&b, "frame %s (root)%s\n", fr.Frame, marker)
		}
		for _, or := range fr.Objects {
			fmt.Fprintf(&b, "  object %s [%s] snapshot %s\n", or.Object, or.Type, or.Snapshot)
			for _, kind := range sortedKeys(or.Components) {
				attrs := or.Components[kind]
				fmt.Fprintf(&b, "    %s:", kind)
				if len(attrs) == 0 {
					b.WriteString(" {}\n")
					continue
				}
				b.WriteString("\n")
				for _, name := range sortedKeys(attrs) {
					fmt.Fprintf(&b, "      %s = %v\n", name, renderValue(attrs[name]))
				}
			}
		}
	}
	return b.String()
}

func renderValue(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%v", v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
