package model

import "sort"

// ObjectSnapshot is one immutable historical state of one logical object:
// the object's identity, its declared type, and one ComponentData bundle
// per component kind.
//
// Snapshots never mutate in place. Deriving a snapshot allocates a fresh
// SnapshotID and copies every component bundle, so frames that reference
// the original keep observing the original state forever. That property is
// what makes undo and time travel correct.
type ObjectSnapshot struct {
	snapshot SnapshotID
	object   ObjectID
	typeName string
	parts    map[ComponentKind]ComponentData
}

// NewObjectSnapshot builds the first snapshot of a freshly created object.
// Component bundles are copied in.
func NewObjectSnapshot(snap SnapshotID, obj ObjectID, typeName string,
	parts map[ComponentKind]ComponentData) *ObjectSnapshot {

	copied := make(map[ComponentKind]ComponentData, len(parts))
	for kind, data := range parts {
		copied[kind] = data.Clone()
	}
	return &ObjectSnapshot{
		snapshot: snap,
		object:   obj,
		typeName: typeName,
		parts:    copied,
	}
}

// SnapshotID returns the identity of this historical state.
func (s *ObjectSnapshot) SnapshotID() SnapshotID { return s.snapshot }

// ObjectID returns the stable identity of the logical object.
func (s *ObjectSnapshot) ObjectID() ObjectID { return s.object }

// TypeName returns the metamodel type tag of the object.
func (s *ObjectSnapshot) TypeName() string { return s.typeName }

// Component returns the bundle for one component kind.
func (s *ObjectSnapshot) Component(kind ComponentKind) (ComponentData, bool) {
	data, ok := s.parts[kind]
	return data, ok
}

// ComponentKinds returns the kinds present on the snapshot, sorted.
func (s *ObjectSnapshot) ComponentKinds() []ComponentKind {
	kinds := make([]ComponentKind, 0, len(s.parts))
	for kind := range s.parts {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Derive produces a new snapshot of the same object with one component
// bundle replaced. All other bundles are copied; the receiver is unchanged.
func (s *ObjectSnapshot) Derive(snap SnapshotID, kind ComponentKind, data ComponentData) *ObjectSnapshot {
	parts := make(map[ComponentKind]ComponentData, len(s.parts)+1)
	for k, d := range s.parts {
		parts[k] = d.Clone()
	}
	parts[kind] = data.Clone()
	return &ObjectSnapshot{
		snapshot: snap,
		object:   s.object,
		typeName: s.typeName,
		parts:    parts,
	}
}

// References collects every object identity referenced from any component
// bundle, in component-kind then attribute order. Duplicates are preserved.
func (s *ObjectSnapshot) References() []ObjectID {
	var refs []ObjectID
	for _, kind := range s.ComponentKinds() {
		refs = append(refs, s.parts[kind].References()...)
	}
	return refs
}
