package store

import (
	"sort"

	"go.uber.org/zap"

	"github.com/arcadia-eng/designdb/internal/model"
)

// Edit is the single mutable working set of an open edit session: a copy
// of the head frame's object index that create, amend and remove calls
// mutate. Nothing an edit does is visible to any DomainView until Commit
// publishes it as a new frame.
type Edit struct {
	store *Store
	base  model.FrameID

	index map[model.ObjectID]model.SnapshotID

	// staged holds snapshots created by this edit, keyed by snapshot id.
	// They enter the shared pool only on commit, so Rollback is free.
	staged map[model.SnapshotID]*model.ObjectSnapshot

	// touched marks objects created or amended by this edit; commit
	// validates exactly these against the metamodel.
	touched map[model.ObjectID]bool

	closed bool
}

// BeginEdit snapshots the head frame's object index into a fresh working
// set. Only one edit session may be open per store; a second attempt fails
// with ConcurrentEditError.
func (s *Store) BeginEdit() (*Edit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.edit != nil {
		return nil, &ConcurrentEditError{Op: "begin edit"}
	}

	head := s.frames[s.head]
	e := &Edit{
		store:   s,
		base:    head.ID(),
		index:   head.CopyIndex(),
		staged:  make(map[model.SnapshotID]*model.ObjectSnapshot),
		touched: make(map[model.ObjectID]bool),
	}
	s.edit = e

	s.log.Debug("edit session opened", zap.String("base_frame", head.ID().String()))
	return e, nil
}

// Base returns the frame the working set was seeded from.
func (e *Edit) Base() model.FrameID { return e.base }

// Contains reports whether the working set currently holds the object.
func (e *Edit) Contains(obj model.ObjectID) bool {
	_, ok := e.index[obj]
	return ok
}

// CreateObject allocates a fresh object identity with an initial snapshot
// built from the given component bundles. The components must match the
// metamodel for the type exactly; a mismatch fails with
// SchemaViolationError (or UnknownTypeError) and leaves the working set
// untouched.
func (e *Edit) CreateObject(typeName string, parts map[model.ComponentKind]model.ComponentData) (model.ObjectID, error) {
	if e.closed {
		return 0, ErrEditClosed
	}

	obj := model.ObjectID(e.store.objectIDs.Next())
	snapID := model.SnapshotID(e.store.snapshotIDs.Next())
	snap := model.NewObjectSnapshot(snapID, obj, typeName, parts)

	if err := e.store.meta.ValidateSnapshot(snap); err != nil {
		return 0, err
	}

	e.staged[snapID] = snap
	e.index[obj] = snapID
	e.touched[obj] = true
	return obj, nil
}

// Amend produces a new immutable snapshot of an object with one component
// bundle replaced. The object identity is unchanged; the previous snapshot
// stays reachable from every frame that references it. Every successful
// amend allocates a fresh SnapshotID, even for repeated amends of the same
// object within one session.
//
// Amending an object not present in the working set fails with
// UnknownObjectError. Structural validity of the result is checked at
// commit, the single validation checkpoint.
func (e *Edit) Amend(obj model.ObjectID, kind model.ComponentKind, data model.ComponentData) (model.SnapshotID, error) {
	if e.closed {
		return 0, ErrEditClosed
	}

	curID, ok := e.index[obj]
	if !ok {
		return 0, &UnknownObjectError{Object: obj}
	}

	cur, ok := e.staged[curID]
	if !ok {
		cur, ok = e.store.lookupSnapshot(curID)
		if !ok {
			return 0, &UnknownObjectError{Object: obj}
		}
	}

	snapID := model.SnapshotID(e.store.snapshotIDs.Next())
	derived := cur.Derive(snapID, kind, data)

	e.staged[snapID] = derived
	e.index[obj] = snapID
	e.touched[obj] = true
	return snapID, nil
}

// Remove deletes an object from the working set, cascading to every object
// that structurally depends on it (holds a reference to it). Removal is
// tombstoning: the identity and its snapshots survive in historical
// frames, which keep resolving it.
//
// Returns the identities removed, the requested object first.
func (e *Edit) Remove(obj model.ObjectID) ([]model.ObjectID, error) {
	if e.closed {
		return nil, ErrEditClosed
	}
	if _, ok := e.index[obj]; !ok {
		return nil, &UnknownObjectError{Object: obj}
	}

	removed := map[model.ObjectID]bool{obj: true}
	delete(e.index, obj)

	// Cascade: removing an object orphans any reference to it; dependents
	// are removed in turn until the working set is closed under removal.
	for {
		var next []model.ObjectID
		for id, snapID := range e.index {
			snap := e.resolve(snapID)
			if snap == nil {
				continue
			}
			for _, ref := range snap.References() {
				if removed[ref] {
					next = append(next, id)
					break
				}
			}
		}
		if len(next) == 0 {
			break
		}
		for _, id := range next {
			removed[id] = true
			delete(e.index, id)
		}
	}

	out := make([]model.ObjectID, 0, len(removed))
	out = append(out, obj)
	for id := range removed {
		if id != obj {
			out = append(out, id)
		}
	}
	rest := out[1:]
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return out, nil
}

// Component returns the current working-set value of one component, for
// editor convenience between amends.
func (e *Edit) Component(obj model.ObjectID, kind model.ComponentKind) (model.ComponentData, error) {
	if e.closed {
		return model.ComponentData{}, ErrEditClosed
	}
	snapID, ok := e.index[obj]
	if !ok {
		return model.ComponentData{}, &UnknownObjectError{Object: obj}
	}
	snap := e.resolve(snapID)
	if snap == nil {
		return model.ComponentData{}, &UnknownObjectError{Object: obj}
	}
	data, ok := snap.Component(kind)
	if !ok {
		return model.ComponentData{}, &MissingComponentError{Object: obj, Kind: kind}
	}
	return data, nil
}

// Commit validates the working set, publishes its staged snapshots into
// the pool, and appends a new frame as a child of the head. The head moves
// to the new frame and any redo child previously recorded on the old head
// is invalidated. Committing an unchanged working set still creates a new
// frame; no-op detection is deliberately not performed.
//
// On failure the working set, pool and frame tree are exactly as before
// the call and the session stays open.
func (e *Edit) Commit() (model.FrameID, error) {
	if e.closed {
		return 0, ErrEditClosed
	}

	s := e.store
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validation checkpoint: structure of every object this edit touched.
	for obj := range e.touched {
		snapID, ok := e.index[obj]
		if !ok {
			continue // created then removed within this session
		}
		if snap, staged := e.staged[snapID]; staged {
			if err := s.meta.ValidateSnapshot(snap); err != nil {
				return 0, err
			}
		}
	}

	// Referential integrity: every object reference must resolve within
	// the frame being committed.
	for obj, snapID := range e.index {
		snap := e.resolveLocked(snapID)
		if snap == nil {
			continue
		}
		for _, ref := range snap.References() {
			if _, ok := e.index[ref]; !ok {
				return 0, &BrokenReferenceError{Object: obj, Target: ref}
			}
		}
	}

	for id, snap := range e.staged {
		s.pool[id] = snap
	}

	parent := s.head
	s.frameSeq++
	frame := model.NewFrame(model.FrameID(s.frameIDs.Next()), parent, s.frameSeq, e.index)
	s.frames[frame.ID()] = frame
	s.children[parent] = append(s.children[parent], frame.ID())

	// A new edit from a frame discards that frame's redo branch. The
	// discarded frames stay stored, reachable by explicit Goto.
	delete(s.redoTarget, parent)

	s.head = frame.ID()
	s.edit = nil
	e.closed = true

	s.log.Info("frame committed",
		zap.String("frame", frame.ID().String()),
		zap.String("parent", parent.String()),
		zap.Int("objects", frame.Len()),
		zap.Int("new_snapshots", len(e.staged)),
	)
	return frame.ID(), nil
}

// Rollback abandons the working set. The stored frame tree is unaffected
// and a new session may be opened afterwards.
func (e *Edit) Rollback() {
	if e.closed {
		return
	}
	s := e.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edit = nil
	e.closed = true
	s.log.Debug("edit session rolled back", zap.String("base_frame", e.base.String()))
}

// resolve finds a snapshot in the staged set or the shared pool.
func (e *Edit) resolve(id model.SnapshotID) *model.ObjectSnapshot {
	if snap, ok := e.staged[id]; ok {
		return snap
	}
	snap, _ := e.store.lookupSnapshot(id)
	return snap
}

// resolveLocked is resolve for callers already holding the store mutex.
func (e *Edit) resolveLocked(id model.SnapshotID) *model.ObjectSnapshot {
	if snap, ok := e.staged[id]; ok {
		return snap
	}
	snap := e.store.pool[id]
	return snap
}

// lookupSnapshot reads the shared pool under the read lock.
func (s *Store) lookupSnapshot(id model.SnapshotID) (*model.ObjectSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.pool[id]
	return snap, ok
}
