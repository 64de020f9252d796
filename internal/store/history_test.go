package store

import (
	"errors"
	"testing"

	"github.com/arcadia-eng/designdb/internal/model"
)

// commitStock commits one new stock and returns the resulting frame.
func commitStock(t *testing.T, s *Store, text string) (model.ObjectID, model.FrameID) {
	t.Helper()
	e := mustBegin(t, s)
	obj := mustCreate(t, e, "Stock", stockParts(text))
	return obj, mustCommit(t, e)
}

func TestUndoRedo_Symmetry(t *testing.T) {
	s := newTestStore(t)
	root := s.Head()

	_, f1 := commitStock(t, s, "a")
	_, f2 := commitStock(t, s, "b")

	if err := s.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if s.Head() != f1 {
		t.Fatalf("head after undo = %s, want %s", s.Head(), f1)
	}
	if err := s.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if s.Head() != root {
		t.Fatalf("head after second undo = %s, want %s", s.Head(), root)
	}

	if err := s.Redo(); err != nil {
		t.Fatalf("redo: %v", err)
	}
	if s.Head() != f1 {
		t.Fatalf("head after redo = %s, want %s", s.Head(), f1)
	}
	if err := s.Redo(); err != nil {
		t.Fatalf("redo: %v", err)
	}
	if s.Head() != f2 {
		t.Fatalf("head after second redo = %s, want %s", s.Head(), f2)
	}
}

func TestUndo_AtRoot(t *testing.T) {
	s := newTestStore(t)
	err := s.Undo()
	var np *NoParentError
	if !errors.As(err, &np) {
		t.Fatalf("undo at root = %v, want NoParentError", err)
	}
}

func TestRedo_WithoutPriorUndo(t *testing.T) {
	s := newTestStore(t)
	commitStock(t, s, "a")

	err := s.Redo()
	var nr *NoRedoTargetError
	if !errors.As(err, &nr) {
		t.Fatalf("redo without undo = %v, want NoRedoTargetError", err)
	}
}

func TestCommit_InvalidatesRedoBranch(t *testing.T) {
	s := newTestStore(t)

	_, f1 := commitStock(t, s, "a")
	_, f2 := commitStock(t, s, "b")

	if err := s.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if target, ok := s.RedoTarget(f1); !ok || target != f2 {
		t.Fatalf("redo target of %s = %s (%v), want %s", f1, target, ok, f2)
	}

	// Committing from f1 starts a new branch and discards the redo slot.
	_, f3 := commitStock(t, s, "c")

	err := s.Redo()
	var nr *NoRedoTargetError
	if !errors.As(err, &nr) {
		t.Fatalf("redo after branch commit = %v, want NoRedoTargetError", err)
	}

	// The discarded branch is still stored and reachable by Goto.
	if err := s.Goto(f2); err != nil {
		t.Fatalf("goto discarded branch: %v", err)
	}
	if s.Head() != f2 {
		t.Fatalf("head = %s, want %s", s.Head(), f2)
	}

	// Both branches hang off f1.
	kids := s.Children(f1)
	if len(kids) != 2 || kids[0] != f2 || kids[1] != f3 {
		t.Fatalf("children of %s = %v, want [%s %s]", f1, kids, f2, f3)
	}
}

func TestGoto_DoesNotDisturbRedoSlots(t *testing.T) {
	s := newTestStore(t)

	_, f1 := commitStock(t, s, "a")
	_, f2 := commitStock(t, s, "b")

	if err := s.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}

	// Jump away and back; the recorded redo target survives.
	if err := s.Goto(f2); err != nil {
		t.Fatalf("goto: %v", err)
	}
	if err := s.Goto(f1); err != nil {
		t.Fatalf("goto back: %v", err)
	}
	if err := s.Redo(); err != nil {
		t.Fatalf("redo after goto round trip: %v", err)
	}
	if s.Head() != f2 {
		t.Fatalf("head = %s, want %s", s.Head(), f2)
	}
}

func TestGoto_UnknownFrame(t *testing.T) {
	s := newTestStore(t)
	err := s.Goto(999)
	var uf *UnknownFrameError
	if !errors.As(err, &uf) {
		t.Fatalf("goto unknown frame = %v, want UnknownFrameError", err)
	}
}

func TestUndo_ThenEditBranches(t *testing.T) {
	s := newTestStore(t)

	objA, _ := commitStock(t, s, "a")
	if err := s.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}

	// Editing from the root after undo must not see the undone object.
	e := mustBegin(t, s)
	if e.Contains(objA) {
		t.Fatalf("working set after undo contains %s", objA)
	}
	objB := mustCreate(t, e, "Stock", stockParts("b"))
	mustCommit(t, e)

	v := s.CurrentView()
	if v.Contains(objA) {
		t.Fatal("new branch contains the undone object")
	}
	if !v.Contains(objB) {
		t.Fatal("new branch lost its own object")
	}
}
