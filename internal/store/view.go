package store

import (
	"github.com/arcadia-eng/designdb/internal/model"
	"github.com/arcadia-eng/designdb/internal/persist"
)

// DomainView is a read-only projection bound at construction to one frame.
// It gives typed access to object components without exposing the snapshot
// pool. Views perform no mutation and hold no lock; because frames and
// snapshots are immutable, any number of views over any frames may be used
// concurrently.
type DomainView struct {
	store *Store
	frame *model.Frame
}

// CurrentView returns a view bound to the head frame. The view stays bound
// to that frame even if the head moves afterwards.
func (s *Store) CurrentView() *DomainView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &DomainView{store: s, frame: s.frames[s.head]}
}

// View returns a view bound to an arbitrary frame, current or historical.
func (s *Store) View(id model.FrameID) (*DomainView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.frames[id]
	if !ok {
		return nil, &UnknownFrameError{Frame: id}
	}
	return &DomainView{store: s, frame: f}, nil
}

// FrameID returns the frame the view is bound to.
func (v *DomainView) FrameID() model.FrameID { return v.frame.ID() }

// Contains reports whether the frame holds the object.
func (v *DomainView) Contains(obj model.ObjectID) bool {
	return v.frame.Contains(obj)
}

// Objects returns the object identities live in the frame, sorted.
func (v *DomainView) Objects() []model.ObjectID {
	return v.frame.Objects()
}

// Len returns the number of live objects in the frame.
func (v *DomainView) Len() int { return v.frame.Len() }

// Resolve returns the snapshot recorded for an object as of this frame.
// Fails with UnknownObjectError if the object is absent from the frame's
// index.
func (v *DomainView) Resolve(obj model.ObjectID) (*model.ObjectSnapshot, error) {
	snapID, ok := v.frame.Snapshot(obj)
	if !ok {
		return nil, &UnknownObjectError{Object: obj, Frame: v.frame.ID()}
	}
	snap, ok := v.store.lookupSnapshot(snapID)
	if !ok {
		// The pool is append-only outside GC, so a missing snapshot means
		// the store's own invariants are broken.
		return nil, &persist.DanglingSnapshotReferenceError{
			Frame:    v.frame.ID(),
			Object:   obj,
			Snapshot: snapID,
		}
	}
	return snap, nil
}

// Component returns one component bundle of an object as of this frame.
// Fails with MissingComponentError if the snapshot lacks the kind; since
// commit-time validation guarantees required kinds, seeing that error
// signals a store-internal invariant violation.
func (v *DomainView) Component(obj model.ObjectID, kind model.ComponentKind) (model.ComponentData, error) {
	snap, err := v.Resolve(obj)
	if err != nil {
		return model.ComponentData{}, err
	}
	data, ok := snap.Component(kind)
	if !ok {
		return model.ComponentData{}, &MissingComponentError{
			Object: obj,
			Kind:   kind,
			Frame:  v.frame.ID(),
		}
	}
	return data, nil
}

// ObjectsOfType returns the identities of live objects with the given type
// tag, sorted. This is the iteration surface the expression compiler and
// solver collaborators read through.
func (v *DomainView) ObjectsOfType(typeName string) []model.ObjectID {
	var out []model.ObjectID
	for _, obj := range v.frame.Objects() {
		snapID, _ := v.frame.Snapshot(obj)
		if snap, ok := v.store.lookupSnapshot(snapID); ok && snap.TypeName() == typeName {
			out = append(out, obj)
		}
	}
	return out
}
