package store

import (
	"errors"
	"testing"
)

func TestGC_ZeroRetentionIsNoOp(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		commitStock(t, s, "x")
	}

	stats, err := s.GC()
	if err != nil {
		t.Fatalf("gc: %v", err)
	}
	if stats.FramesRemoved != 0 || stats.SnapshotsRemoved != 0 {
		t.Fatalf("stats = %+v, want zero", stats)
	}
	if got := len(s.Frames()); got != 6 {
		t.Fatalf("frames after no-op gc = %d, want 6", got)
	}
}

func TestGC_PrunesDiscardedBranch(t *testing.T) {
	s := New(testMetamodel(t), Options{Retention: Retention{KeepFrames: 1}})

	// Build a branch, walk back to the root, then grow a new branch long
	// enough that the old one falls outside the retention window.
	_, abandoned := commitStock(t, s, "old")
	if err := s.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	e := mustBegin(t, s)
	mustCommit(t, e) // invalidates the redo slot pointing at the branch
	for i := 0; i < 3; i++ {
		commitStock(t, s, "new")
	}
	head := s.Head()
	before := s.SnapshotCount()

	stats, err := s.GC()
	if err != nil {
		t.Fatalf("gc: %v", err)
	}
	if stats.FramesRemoved == 0 {
		t.Fatal("gc removed no frames")
	}
	if stats.SnapshotsRemoved == 0 {
		t.Fatal("gc removed no snapshots")
	}
	if s.SnapshotCount() >= before {
		t.Fatalf("pool did not shrink: %d -> %d", before, s.SnapshotCount())
	}

	if _, err := s.Frame(abandoned); err == nil {
		t.Fatal("pruned frame still present")
	}
	if err := s.Goto(abandoned); err == nil {
		t.Fatal("goto reached a pruned frame")
	}

	// Head and its ancestry survive intact.
	if s.Head() != head {
		t.Fatalf("gc moved the head to %s", s.Head())
	}
	id := head
	for {
		f, err := s.Frame(id)
		if err != nil {
			t.Fatalf("ancestor %s missing after gc: %v", id, err)
		}
		parent, ok := f.Parent()
		if !ok {
			break
		}
		id = parent
	}
	for _, obj := range s.CurrentView().Objects() {
		if _, err := s.CurrentView().Resolve(obj); err != nil {
			t.Fatalf("resolve %s after gc: %v", obj, err)
		}
	}
}

func TestGC_KeepsRedoTarget(t *testing.T) {
	s := New(testMetamodel(t), Options{Retention: Retention{KeepFrames: 1}})

	_, f1 := commitStock(t, s, "a")
	_, f2 := commitStock(t, s, "b")
	if err := s.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if s.Head() != f1 {
		t.Fatalf("head after undo = %s, want %s", s.Head(), f1)
	}

	if _, err := s.GC(); err != nil {
		t.Fatalf("gc: %v", err)
	}

	// The redo slot recorded on f1 keeps f2 alive.
	if _, err := s.Frame(f2); err != nil {
		t.Fatalf("redo target pruned: %v", err)
	}
	if err := s.Redo(); err != nil {
		t.Fatalf("redo after gc: %v", err)
	}
	if s.Head() != f2 {
		t.Fatalf("head = %s, want %s", s.Head(), f2)
	}
}

func TestGC_RejectedDuringOpenEdit(t *testing.T) {
	s := New(testMetamodel(t), Options{Retention: Retention{KeepFrames: 1}})
	e := mustBegin(t, s)

	_, err := s.GC()
	var ce *ConcurrentEditError
	if !errors.As(err, &ce) {
		t.Fatalf("gc during edit = %v, want ConcurrentEditError", err)
	}
	e.Rollback()
}
