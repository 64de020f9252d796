package store

import (
	"errors"
	"fmt"

	"github.com/arcadia-eng/designdb/internal/model"
)

// UnknownObjectError reports a reference to an object identity that does
// not exist in the frame being addressed.
type UnknownObjectError struct {
	Object model.ObjectID
	Frame  model.FrameID // 0 when the lookup was against a working set
}

func (e *UnknownObjectError) Error() string {
	if e.Frame != 0 {
		return fmt.Sprintf("unknown object %s in frame %s", e.Object, e.Frame)
	}
	return fmt.Sprintf("unknown object %s in working set", e.Object)
}

// IsUnknownObject reports whether err is (or wraps) an UnknownObjectError.
func IsUnknownObject(err error) bool {
	var uo *UnknownObjectError
	return errors.As(err, &uo)
}

// MissingComponentError reports a component kind absent from a resolved
// snapshot. Commit-time validation guarantees required kinds are present,
// so observing this error signals a store-internal invariant violation.
type MissingComponentError struct {
	Object model.ObjectID
	Kind   model.ComponentKind
	Frame  model.FrameID
}

func (e *MissingComponentError) Error() string {
	return fmt.Sprintf("object %s in frame %s has no %q component", e.Object, e.Frame, e.Kind)
}

// ConcurrentEditError reports an operation that requires exclusive access
// to the working set: opening a second edit session, or navigating or
// compacting the version graph while a session is open.
type ConcurrentEditError struct {
	Op string
}

func (e *ConcurrentEditError) Error() string {
	return fmt.Sprintf("%s: an edit session is already open", e.Op)
}

// NoParentError reports an undo attempted at the root of the version graph.
type NoParentError struct {
	Frame model.FrameID
}

func (e *NoParentError) Error() string {
	return fmt.Sprintf("cannot undo: frame %s has no parent", e.Frame)
}

// NoRedoTargetError reports a redo attempted on a frame with no recorded
// redo child, either because none was ever recorded or because an
// intervening commit invalidated it.
type NoRedoTargetError struct {
	Frame model.FrameID
}

func (e *NoRedoTargetError) Error() string {
	return fmt.Sprintf("cannot redo: frame %s has no redo target", e.Frame)
}

// UnknownFrameError reports a reference to a frame identity not present in
// the version graph.
type UnknownFrameError struct {
	Frame model.FrameID
}

func (e *UnknownFrameError) Error() string {
	return fmt.Sprintf("unknown frame %s", e.Frame)
}

// BrokenReferenceError reports a commit whose working set contains an
// object reference that does not resolve within the committed frame.
type BrokenReferenceError struct {
	Object model.ObjectID
	Target model.ObjectID
}

func (e *BrokenReferenceError) Error() string {
	return fmt.Sprintf("object %s references %s, which is not in the frame", e.Object, e.Target)
}

// ErrEditClosed is returned by operations on an edit session that has
// already been committed or rolled back.
var ErrEditClosed = errors.New("edit session is closed")
