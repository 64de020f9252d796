package model

import "sort"

// Frame is an immutable, complete mapping from every live object identity
// to the snapshot representing its state as of one version. Frames are
// linked into a rooted tree by parent identifiers; that tree is the
// backbone of undo, redo and time travel.
//
// A frame is built once, by commit or by the persistence loader, and never
// changes afterwards. Concurrent readers may therefore share frames without
// coordination.
type Frame struct {
	id     FrameID
	parent FrameID // 0 when the frame is the root
	seq    uint64  // creation order, used to pick the newest frame on load
	index  map[ObjectID]SnapshotID
}

// NewFrame builds a frame. parent is 0 for the root frame. The index map is
// copied in.
func NewFrame(id FrameID, parent FrameID, seq uint64, index map[ObjectID]SnapshotID) *Frame {
	copied := make(map[ObjectID]SnapshotID, len(index))
	for obj, snap := range index {
		copied[obj] = snap
	}
	return &Frame{id: id, parent: parent, seq: seq, index: copied}
}

// ID returns the frame identity.
func (f *Frame) ID() FrameID { return f.id }

// Parent returns the parent frame identity and whether one exists. The
// root frame has none.
func (f *Frame) Parent() (FrameID, bool) {
	if f.parent == 0 {
		return 0, false
	}
	return f.parent, true
}

// Seq returns the creation order of the frame within its store.
func (f *Frame) Seq() uint64 { return f.seq }

// Snapshot returns the snapshot identity recorded for an object.
func (f *Frame) Snapshot(obj ObjectID) (SnapshotID, bool) {
	snap, ok := f.index[obj]
	return snap, ok
}

// Contains reports whether the frame holds an entry for the object.
func (f *Frame) Contains(obj ObjectID) bool {
	_, ok := f.index[obj]
	return ok
}

// Objects returns the object identities in the frame, sorted.
func (f *Frame) Objects() []ObjectID {
	objs := make([]ObjectID, 0, len(f.index))
	for obj := range f.index {
		objs = append(objs, obj)
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i] < objs[j] })
	return objs
}

// Len returns the number of live objects in the frame.
func (f *Frame) Len() int { return len(f.index) }

// CopyIndex returns an independent copy of the object index, used to seed a
// working set.
func (f *Frame) CopyIndex() map[ObjectID]SnapshotID {
	out := make(map[ObjectID]SnapshotID, len(f.index))
	for obj, snap := range f.index {
		out[obj] = snap
	}
	return out
}
