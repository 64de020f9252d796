package store

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arcadia-eng/designdb/internal/metamodel"
	"github.com/arcadia-eng/designdb/internal/model"
)

// Options configures a store.
type Options struct {
	// Logger receives structured lifecycle events (commits, navigation,
	// persistence, GC). Nil means no logging.
	Logger *zap.Logger

	// Retention configures the garbage collection pass. See GC.
	Retention Retention
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Store owns the full snapshot pool and frame tree of one design, exposes
// the edit/commit protocol and undo/redo navigation, and manages
// persistence.
//
// All exported methods are safe for concurrent use. Reads against
// committed frames never block edits; the mutex only guards the mutable
// tree bookkeeping (head, redo slots, children) and the single working
// set slot.
type Store struct {
	mu sync.RWMutex

	meta *metamodel.Metamodel
	log  *zap.Logger
	opts Options

	// designID identifies the design lineage across saved files.
	designID uuid.UUID

	objectIDs   *model.IDGenerator
	snapshotIDs *model.IDGenerator
	frameIDs    *model.IDGenerator
	frameSeq    uint64

	pool     map[model.SnapshotID]*model.ObjectSnapshot
	frames   map[model.FrameID]*model.Frame
	children map[model.FrameID][]model.FrameID

	root model.FrameID
	head model.FrameID

	// redoTarget holds the single redo slot per frame: the child most
	// recently departed from by undo. A commit from a frame clears its
	// slot.
	redoTarget map[model.FrameID]model.FrameID

	edit *Edit
}

// New creates an empty store over the given metamodel. The store starts
// with a single empty root frame that is also the head.
func New(meta *metamodel.Metamodel, opts Options) *Store {
	s := &Store{
		meta:        meta,
		log:         opts.logger(),
		opts:        opts,
		designID:    uuid.New(),
		objectIDs:   model.NewIDGenerator(1),
		snapshotIDs: model.NewIDGenerator(1),
		frameIDs:    model.NewIDGenerator(1),
		pool:        make(map[model.SnapshotID]*model.ObjectSnapshot),
		frames:      make(map[model.FrameID]*model.Frame),
		children:    make(map[model.FrameID][]model.FrameID),
		redoTarget:  make(map[model.FrameID]model.FrameID),
	}

	s.frameSeq++
	root := model.NewFrame(model.FrameID(s.frameIDs.Next()), 0, s.frameSeq, nil)
	s.frames[root.ID()] = root
	s.root = root.ID()
	s.head = root.ID()

	s.log.Debug("store created",
		zap.String("design_id", s.designID.String()),
		zap.String("metamodel", meta.Name()),
	)
	return s
}

// Metamodel returns the schema the store validates against.
func (s *Store) Metamodel() *metamodel.Metamodel { return s.meta }

// DesignID returns the identity of the design lineage held by this store.
func (s *Store) DesignID() uuid.UUID { return s.designID }

// Head returns the frame the active session is anchored to.
func (s *Store) Head() model.FrameID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head
}

// Root returns the root frame of the version graph.
func (s *Store) Root() model.FrameID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// Frame returns the frame with the given identity.
func (s *Store) Frame(id model.FrameID) (*model.Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.frames[id]
	if !ok {
		return nil, &UnknownFrameError{Frame: id}
	}
	return f, nil
}

// Frames returns every frame identity in the version graph, ordered by
// creation.
func (s *Store) Frames() []model.FrameID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]model.FrameID, 0, len(s.frames))
	for id := range s.frames {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.frames[ids[i]].Seq() < s.frames[ids[j]].Seq()
	})
	return ids
}

// Children returns the committed children of a frame, in commit order.
func (s *Store) Children(id model.FrameID) []model.FrameID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.FrameID, len(s.children[id]))
	copy(out, s.children[id])
	return out
}

// SnapshotCount returns the number of snapshots in the pool.
func (s *Store) SnapshotCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pool)
}
