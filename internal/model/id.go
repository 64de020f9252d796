package model

import (
	"strconv"
	"sync/atomic"
)

// ObjectID is a stable handle naming one logical object across its entire
// edit history. It is assigned once at object creation and never reused,
// even after the object is removed from the current frame.
type ObjectID uint64

// String returns the decimal representation of the identity.
func (id ObjectID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// SnapshotID names one immutable historical state of one object. A new
// SnapshotID is allocated on every successful amend; existing IDs are never
// reassigned.
type SnapshotID uint64

// String returns the decimal representation of the identity.
func (id SnapshotID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// FrameID names one committed version frame in the version graph.
type FrameID uint64

// String returns the decimal representation of the identity.
func (id FrameID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// IDGenerator allocates sequential identifiers, unique for the lifetime of
// the store that owns it. The zero value starts at 1 so that 0 can serve as
// an "unassigned" sentinel in all three identity domains.
type IDGenerator struct {
	last uint64
}

// NewIDGenerator creates a generator whose next value is first. Passing the
// highest identifier observed in a loaded file resumes allocation without
// collisions.
func NewIDGenerator(first uint64) *IDGenerator {
	if first == 0 {
		first = 1
	}
	return &IDGenerator{last: first - 1}
}

// Next returns the next identifier in the sequence.
func (g *IDGenerator) Next() uint64 {
	return atomic.AddUint64(&g.last, 1)
}

// MarkUsed advances the generator past id if id is ahead of the sequence.
// Used when loading persisted identifiers.
func (g *IDGenerator) MarkUsed(id uint64) {
	for {
		cur := atomic.LoadUint64(&g.last)
		if id <= cur {
			return
		}
		if atomic.CompareAndSwapUint64(&g.last, cur, id) {
			return
		}
	}
}

// ParseObjectID parses a decimal object identity as written by
// ObjectID.String.
func ParseObjectID(s string) (ObjectID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	return ObjectID(v), err
}

// ParseSnapshotID parses a decimal snapshot identity.
func ParseSnapshotID(s string) (SnapshotID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	return SnapshotID(v), err
}

// ParseFrameID parses a decimal frame identity.
func ParseFrameID(s string) (FrameID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	return FrameID(v), err
}
