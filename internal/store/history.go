package store

import (
	"go.uber.org/zap"

	"github.com/arcadia-eng/designdb/internal/model"
)

// Undo moves the head to its parent frame, recording the departed frame as
// the parent's redo target. Fails with NoParentError at the root. Fails
// with ConcurrentEditError while an edit session is open, since the
// working set is seeded from the head.
func (s *Store) Undo() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.edit != nil {
		return &ConcurrentEditError{Op: "undo"}
	}

	head := s.frames[s.head]
	parent, ok := head.Parent()
	if !ok {
		return &NoParentError{Frame: head.ID()}
	}

	s.redoTarget[parent] = head.ID()
	s.head = parent

	s.log.Debug("undo",
		zap.String("from", head.ID().String()),
		zap.String("to", parent.String()),
	)
	return nil
}

// Redo moves the head to the redo child recorded by a prior Undo. Fails
// with NoRedoTargetError if no target is recorded or an intervening commit
// invalidated it.
func (s *Store) Redo() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.edit != nil {
		return &ConcurrentEditError{Op: "redo"}
	}

	target, ok := s.redoTarget[s.head]
	if !ok {
		return &NoRedoTargetError{Frame: s.head}
	}

	from := s.head
	s.head = target

	s.log.Debug("redo",
		zap.String("from", from.String()),
		zap.String("to", target.String()),
	)
	return nil
}

// Goto moves the head to any frame in the version graph, for time travel
// and branch comparison. It does not touch the redo bookkeeping of frames
// along the way. Fails with UnknownFrameError for an identity not in the
// graph and with ConcurrentEditError while an edit session is open.
func (s *Store) Goto(id model.FrameID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.edit != nil {
		return &ConcurrentEditError{Op: "goto"}
	}

	if _, ok := s.frames[id]; !ok {
		return &UnknownFrameError{Frame: id}
	}

	from := s.head
	s.head = id

	s.log.Debug("goto",
		zap.String("from", from.String()),
		zap.String("to", id.String()),
	)
	return nil
}

// RedoTarget returns the recorded redo child of a frame, if any.
func (s *Store) RedoTarget(id model.FrameID) (model.FrameID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	target, ok := s.redoTarget[id]
	return target, ok
}
