package harness

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/arcadia-eng/designdb/internal/metamodel"
	"github.com/arcadia-eng/designdb/internal/model"
	"github.com/arcadia-eng/designdb/internal/persist"
	"github.com/arcadia-eng/designdb/internal/store"
)

// TraceEvent records the outcome of one scenario step.
type TraceEvent struct {
	Step     int      `json:"step"`
	Op       string   `json:"op"`
	Object   string   `json:"object,omitempty"`
	Snapshot string   `json:"snapshot,omitempty"`
	Frame    string   `json:"frame,omitempty"`
	Removed  []string `json:"removed,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// ObjectState is the rendered final state of one object in the head view.
type ObjectState struct {
	Object     string                    `json:"object"`
	Type       string                    `json:"type"`
	Snapshot   string                    `json:"snapshot"`
	Components map[string]map[string]any `json:"components"`
}

// Trace is the full deterministic output of a scenario run: one event per
// step plus the final head view.
type Trace struct {
	Scenario string        `json:"scenario"`
	Events   []TraceEvent  `json:"events"`
	Head     string        `json:"head"`
	Objects  []ObjectState `json:"objects"`
}

// Runner executes scenarios. TempDir hosts save/load round trips.
type Runner struct {
	TempDir string
}

// Run executes a scenario from a fresh store and returns its trace. A step
// failing with an unexpected error (or succeeding where Expect names an
// error) aborts the run.
func (r *Runner) Run(sc *Scenario) (*Trace, error) {
	meta, err := metamodel.CompileString(sc.Metamodel)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: metamodel: %w", sc.Name, err)
	}

	st := store.New(meta, store.Options{})
	run := &scenarioRun{
		runner:  r,
		store:   st,
		objects: make(map[string]model.ObjectID),
		frames:  make(map[string]model.FrameID),
	}

	trace := &Trace{Scenario: sc.Name}
	for i, step := range sc.Steps {
		event, err := run.apply(i, step)
		if err != nil {
			return nil, fmt.Errorf("scenario %s step %d: %w", sc.Name, i, err)
		}
		trace.Events = append(trace.Events, event)
	}

	trace.Head = run.store.Head().String()
	view := run.store.CurrentView()
	for _, obj := range view.Objects() {
		snap, err := view.Resolve(obj)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: final state: %w", sc.Name, err)
		}
		state := ObjectState{
			Object:     obj.String(),
			Type:       snap.TypeName(),
			Snapshot:   snap.SnapshotID().String(),
			Components: make(map[string]map[string]any),
		}
		for _, kind := range snap.ComponentKinds() {
			data, _ := snap.Component(kind)
			attrs := make(map[string]any, data.Len())
			for _, name := range data.AttributeNames() {
				v, _ := data.Get(name)
				attrs[name] = model.ToAny(v)
			}
			state.Components[string(kind)] = attrs
		}
		trace.Objects = append(trace.Objects, state)
	}
	return trace, nil
}

type scenarioRun struct {
	runner  *Runner
	store   *store.Store
	edit    *store.Edit
	objects map[string]model.ObjectID
	frames  map[string]model.FrameID
	saves   int
}

func (run *scenarioRun) apply(i int, step Step) (TraceEvent, error) {
	event := TraceEvent{Step: i}

	var err error
	switch {
	case step.Begin:
		event.Op = "begin"
		var e *store.Edit
		e, err = run.store.BeginEdit()
		if err == nil {
			run.edit = e
		}

	case step.Create != nil:
		event.Op = "create"
		err = run.applyCreate(step.Create, &event)

	case step.Amend != nil:
		event.Op = "amend"
		err = run.applyAmend(step.Amend, &event)

	case step.Remove != nil:
		event.Op = "remove"
		err = run.applyRemove(step.Remove, &event)

	case step.Commit != nil:
		event.Op = "commit"
		err = run.applyCommit(step.Commit, &event)

	case step.Rollback:
		event.Op = "rollback"
		if run.edit == nil {
			return event, fmt.Errorf("rollback without open edit")
		}
		run.edit.Rollback()
		run.edit = nil

	case step.Undo:
		event.Op = "undo"
		err = run.store.Undo()
		if err == nil {
			event.Frame = run.store.Head().String()
		}

	case step.Redo:
		event.Op = "redo"
		err = run.store.Redo()
		if err == nil {
			event.Frame = run.store.Head().String()
		}

	case step.Goto != nil:
		event.Op = "goto"
		frame, ok := run.frames[step.Goto.Frame]
		if !ok {
			return event, fmt.Errorf("unknown frame alias %q", step.Goto.Frame)
		}
		err = run.store.Goto(frame)
		if err == nil {
			event.Frame = frame.String()
		}

	case step.SaveLoad:
		event.Op = "save_load"
		err = run.applySaveLoad(&event)

	default:
		return event, fmt.Errorf("step has no operation")
	}

	if step.Expect != "" {
		if err == nil {
			return event, fmt.Errorf("expected %s error, got success", step.Expect)
		}
		kind := classifyError(err)
		if kind != step.Expect {
			return event, fmt.Errorf("expected %s error, got %s (%v)", step.Expect, kind, err)
		}
		event.Error = kind
		return event, nil
	}
	if err != nil {
		return event, err
	}
	return event, nil
}

func (run *scenarioRun) applyCreate(step *CreateStep, event *TraceEvent) error {
	if run.edit == nil {
		return fmt.Errorf("create without open edit")
	}
	parts := make(map[model.ComponentKind]model.ComponentData, len(step.Components))
	for kind, attrs := range step.Components {
		data, err := run.convertAttrs(attrs)
		if err != nil {
			return fmt.Errorf("component %s: %w", kind, err)
		}
		parts[model.ComponentKind(kind)] = data
	}
	obj, err := run.edit.CreateObject(step.Type, parts)
	if err != nil {
		return err
	}
	if step.As != "" {
		run.objects[step.As] = obj
	}
	event.Object = obj.String()
	return nil
}

func (run *scenarioRun) applyAmend(step *AmendStep, event *TraceEvent) error {
	if run.edit == nil {
		return fmt.Errorf("amend without open edit")
	}
	obj, ok := run.objects[step.Object]
	if !ok {
		return fmt.Errorf("unknown object alias %q", step.Object)
	}
	data, err := run.convertAttrs(step.Attributes)
	if err != nil {
		return err
	}
	snap, err := run.edit.Amend(obj, model.ComponentKind(step.Component), data)
	if err != nil {
		return err
	}
	event.Object = obj.String()
	event.Snapshot = snap.String()
	return nil
}

func (run *scenarioRun) applyRemove(step *RemoveStep, event *TraceEvent) error {
	if run.edit == nil {
		return fmt.Errorf("remove without open edit")
	}
	obj, ok := run.objects[step.Object]
	if !ok {
		return fmt.Errorf("unknown object alias %q", step.Object)
	}
	removed, err := run.edit.Remove(obj)
	if err != nil {
		return err
	}
	event.Object = obj.String()
	for _, id := range removed {
		event.Removed = append(event.Removed, id.String())
	}
	return nil
}

func (run *scenarioRun) applyCommit(step *CommitStep, event *TraceEvent) error {
	if run.edit == nil {
		return fmt.Errorf("commit without open edit")
	}
	frame, err := run.edit.Commit()
	if err != nil {
		return err
	}
	run.edit = nil
	if step.As != "" {
		run.frames[step.As] = frame
	}
	event.Frame = frame.String()
	return nil
}

func (run *scenarioRun) applySaveLoad(event *TraceEvent) error {
	if run.edit != nil {
		return fmt.Errorf("save_load with open edit")
	}
	run.saves++
	path := filepath.Join(run.runner.TempDir, fmt.Sprintf("roundtrip-%d.db", run.saves))
	if err := run.store.Save(path); err != nil {
		return err
	}
	reopened, err := store.Open(path, run.store.Metamodel(), store.Options{})
	if err != nil {
		return err
	}
	run.store = reopened
	event.Frame = reopened.Head().String()
	return nil
}

// convertAttrs turns YAML attribute values into model values, resolving
// {ref: alias} and {refs: [alias...]} through the scenario's object
// aliases.
func (run *scenarioRun) convertAttrs(attrs map[string]any) (model.ComponentData, error) {
	values := make(map[string]model.Value, len(attrs))
	for name, raw := range attrs {
		v, err := run.convertValue(raw)
		if err != nil {
			return model.ComponentData{}, fmt.Errorf("attribute %q: %w", name, err)
		}
		values[name] = v
	}
	return model.NewComponentData(values), nil
}

func (run *scenarioRun) convertValue(raw any) (model.Value, error) {
	if m, ok := raw.(map[string]any); ok {
		if alias, ok := m["ref"].(string); ok && len(m) == 1 {
			if obj, found := run.objects[alias]; found {
				return model.Ref(obj), nil
			}
			return nil, fmt.Errorf("unknown object alias %q", alias)
		}
		if aliases, ok := m["refs"].([]any); ok && len(m) == 1 {
			refs := make(model.RefList, 0, len(aliases))
			for _, a := range aliases {
				alias, ok := a.(string)
				if !ok {
					return nil, fmt.Errorf("refs entries must be alias strings")
				}
				obj, found := run.objects[alias]
				if !found {
					return nil, fmt.Errorf("unknown object alias %q", alias)
				}
				refs = append(refs, obj)
			}
			return refs, nil
		}
	}
	return model.FromAny(raw)
}

// classifyError names an error kind for Expect matching.
func classifyError(err error) string {
	var (
		schema         *metamodel.SchemaViolationError
		unknownType    *metamodel.UnknownTypeError
		unknownObject  *store.UnknownObjectError
		missing        *store.MissingComponentError
		concurrent     *store.ConcurrentEditError
		noParent       *store.NoParentError
		noRedo         *store.NoRedoTargetError
		unknownFrame   *store.UnknownFrameError
		broken         *store.BrokenReferenceError
		unknownVersion *persist.UnknownVersionError
	)
	switch {
	case errors.As(err, &schema):
		return "schema_violation"
	case errors.As(err, &unknownType):
		return "unknown_type"
	case errors.As(err, &unknownObject):
		return "unknown_object"
	case errors.As(err, &missing):
		return "missing_component"
	case errors.As(err, &concurrent):
		return "concurrent_edit"
	case errors.As(err, &noParent):
		return "no_parent"
	case errors.As(err, &noRedo):
		return "no_redo_target"
	case errors.As(err, &unknownFrame):
		return "unknown_frame"
	case errors.As(err, &broken):
		return "broken_reference"
	case errors.As(err, &unknownVersion):
		return "unknown_version"
	}
	return "unknown"
}
