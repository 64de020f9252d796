package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stockSnapshot(snap SnapshotID, obj ObjectID) *ObjectSnapshot {
	return NewObjectSnapshot(snap, obj, "Stock", map[ComponentKind]ComponentData{
		"Description": NewComponentData(map[string]Value{"text": String("Tank")}),
		"Flow":        NewComponentData(map[string]Value{"rate": Null{}}),
	})
}

func TestDerive_AllocatesNewStateKeepsIdentity(t *testing.T) {
	s1 := stockSnapshot(1, 10)
	s2 := s1.Derive(2, "Flow", NewComponentData(map[string]Value{"rate": Int(10)}))

	assert.Equal(t, SnapshotID(2), s2.SnapshotID())
	assert.Equal(t, s1.ObjectID(), s2.ObjectID())
	assert.Equal(t, s1.TypeName(), s2.TypeName())

	// The original keeps observing the old state.
	old, ok := s1.Component("Flow")
	require.True(t, ok)
	v, _ := old.Get("rate")
	assert.Equal(t, Null{}, v)

	updated, ok := s2.Component("Flow")
	require.True(t, ok)
	v, _ = updated.Get("rate")
	assert.Equal(t, Int(10), v)
}

func TestDerive_DoesNotAliasUnchangedComponents(t *testing.T) {
	s1 := stockSnapshot(1, 10)
	s2 := s1.Derive(2, "Flow", NewComponentData(map[string]Value{"rate": Int(1)}))

	d1, _ := s1.Component("Description")
	d2, _ := s2.Component("Description")
	assert.True(t, d1.Equal(d2))

	// Replacing via With on one bundle must not leak into the other.
	d3 := d2.With("text", String("Changed"))
	v, _ := d1.Get("text")
	assert.Equal(t, String("Tank"), v)
	v, _ = d3.Get("text")
	assert.Equal(t, String("Changed"), v)
}

func TestComponentData_InputMapNotAliased(t *testing.T) {
	attrs := map[string]Value{"text": String("a")}
	data := NewComponentData(attrs)
	attrs["text"] = String("mutated")

	v, _ := data.Get("text")
	assert.Equal(t, String("a"), v)
}

func TestSnapshotReferences(t *testing.T) {
	snap := NewObjectSnapshot(1, 5, "Edge", map[ComponentKind]ComponentData{
		"Arrow": NewComponentData(map[string]Value{
			"origin": Ref(1),
			"target": Ref(2),
		}),
		"Tags": NewComponentData(map[string]Value{
			"members": RefList{3, 4},
		}),
	})

	assert.Equal(t, []ObjectID{1, 2, 3, 4}, snap.References())
}

func TestFrame_ImmutableIndex(t *testing.T) {
	index := map[ObjectID]SnapshotID{1: 100}
	f := NewFrame(1, 0, 1, index)

	index[2] = 200
	assert.False(t, f.Contains(2), "frame must copy the index it is built from")

	copied := f.CopyIndex()
	copied[3] = 300
	assert.False(t, f.Contains(3), "CopyIndex must hand out an independent map")
}

func TestFrame_Parent(t *testing.T) {
	root := NewFrame(1, 0, 1, nil)
	_, ok := root.Parent()
	assert.False(t, ok)

	child := NewFrame(2, 1, 2, nil)
	parent, ok := child.Parent()
	require.True(t, ok)
	assert.Equal(t, FrameID(1), parent)
}

func TestIDGenerator(t *testing.T) {
	g := NewIDGenerator(1)
	assert.Equal(t, uint64(1), g.Next())
	assert.Equal(t, uint64(2), g.Next())

	g.MarkUsed(10)
	assert.Equal(t, uint64(11), g.Next())

	// Marking an already-passed id must not rewind.
	g.MarkUsed(3)
	assert.Equal(t, uint64(12), g.Next())
}
